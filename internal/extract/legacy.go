package extract

import (
	"fmt"
	"strings"

	"github.com/lu4p/cat"
)

// extractLegacy handles OpenDocument text and RTF resumes. DOCX goes through extractDOCX
// because cat's paragraph regex misses attributed <w:p> elements.
func extractLegacy(content []byte, ext string) (string, error) {
	text, err := cat.FromBytes(content)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", strings.TrimPrefix(ext, "."), err)
	}
	return strings.TrimSpace(text), nil
}
