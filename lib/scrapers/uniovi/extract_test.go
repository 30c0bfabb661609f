package uniovi

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const schedulePage = `<!DOCTYPE html>
<html><body>
<h1>Horario</h1>
<section id="horario">
  <ul>
    <li class="clase">Alg.T.2</li>
    <li class="clase">Alg.S.1</li>
    <li class="clase">Alg.L.3</li>
  </ul>
</section>
</body></html>`

const duplicatesPage = `<!DOCTYPE html>
<html><body>
<section id="horario">
  <ul>
    <li class="clase">SO.L.1</li>
    <li class="clase">
      TPP.T.2
    </li>
    <li class="clase">SO.L.1</li>
  </ul>
</section>
</body></html>`

const emptySchedulePage = `<!DOCTYPE html>
<html><body>
<section id="horario">
  <p class="sin-clases">No hay clases asignadas.</p>
</section>
</body></html>`

const notFoundPage = `<!DOCTYPE html>
<html><body>
<div class="uo-desconocido">No se ha encontrado ese UO.</div>
</body></html>`

const brokenResultsPage = `<!DOCTYPE html>
<html><body>
<section id="horario">
  <table><tr><td>Alg.T.2</td></tr></table>
</section>
</body></html>`

func parsePage(t *testing.T, page string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)
	return doc
}

func TestExtractClassesDocumentOrder(t *testing.T) {
	classes, err := extractClasses(DefaultConfig(), parsePage(t, schedulePage))
	require.NoError(t, err)

	diff := cmp.Diff([]string{"Alg.T.2", "Alg.S.1", "Alg.L.3"}, classes)
	require.Empty(t, diff)
}

func TestExtractClassesKeepsDuplicatesAndTrims(t *testing.T) {
	classes, err := extractClasses(DefaultConfig(), parsePage(t, duplicatesPage))
	require.NoError(t, err)

	diff := cmp.Diff([]string{"SO.L.1", "TPP.T.2", "SO.L.1"}, classes)
	require.Empty(t, diff)
}

func TestExtractClassesEmptySchedule(t *testing.T) {
	classes, err := extractClasses(DefaultConfig(), parsePage(t, emptySchedulePage))
	require.NoError(t, err)
	require.NotNil(t, classes)
	require.Len(t, classes, 0)
}

func TestExtractClassesMissingContainer(t *testing.T) {
	_, err := extractClasses(DefaultConfig(), parsePage(t, notFoundPage))
	require.Error(t, err)

	kind, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, KindUnexpectedPortalShape, kind)
}

func TestExtractClassesNoEntriesNoMarker(t *testing.T) {
	_, err := extractClasses(DefaultConfig(), parsePage(t, brokenResultsPage))
	require.Error(t, err)

	kind, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, KindUnexpectedPortalShape, kind)
}
