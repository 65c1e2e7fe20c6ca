package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/clinicore/medsearch/internal/models"
)

// extractPlain validates UTF-8 and returns the content as pages split on
// form feeds. Text files without form feeds yield a single page.
func extractPlain(content []byte) ([]models.Page, error) {
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("not valid UTF-8 text")
	}
	parts := strings.Split(string(content), "\f")
	pages := make([]models.Page, 0, len(parts))
	for i, p := range parts {
		pages = append(pages, models.Page{Number: i + 1, Text: p})
	}
	return pages, nil
}
