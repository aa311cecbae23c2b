package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

const maxSlugAttempts = 1000

func slugify(name string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "item"
	}
	return slug
}

// uniqueSlug returns slugify(name), suffixed with -1, -2, ... until exists
// reports it free.
func uniqueSlug(ctx context.Context, name string, excludeID int, exists func(ctx context.Context, slug string, excludeID int) (bool, error)) (string, error) {
	base := slugify(name)
	candidate := base
	for n := 1; n <= maxSlugAttempts; n++ {
		taken, err := exists(ctx, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
	return "", fmt.Errorf("could not find a free slug for %q", name)
}

func newSKU() string {
	return "SKU-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}
