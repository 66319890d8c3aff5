package vault

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/gophvault/internal/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Search returns the metadata of items whose name or any tag contains query,
// compared case-insensitively. An empty query matches everything. Like List
// it works while locked.
func (v *Vault) Search(ctx context.Context, query string) ([]models.ItemMeta, error) {
	metas, err := v.List(ctx)
	if err != nil {
		return nil, err
	}

	q := fold(query)
	result := make([]models.ItemMeta, 0, len(metas))
	for _, m := range metas {
		if matches(m, q) {
			result = append(result, m)
		}
	}
	return result, nil
}

func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

func matches(m models.ItemMeta, q string) bool {
	if strings.Contains(fold(m.Name), q) {
		return true
	}
	for _, t := range m.Tags {
		if strings.Contains(fold(t), q) {
			return true
		}
	}
	return false
}
