package vector

import (
	"context"
	"strings"
	"unicode"

	"github.com/weaviate/weaviate/entities/models"
)

const (
	PropChunkID  = "chunkId"
	PropMetadata = "metadata"
)

// SchemaClient defines the interface for Weaviate schema operations
type SchemaClient interface {
	ClassExists(ctx context.Context, className string) (bool, error)
	CreateClass(ctx context.Context, class *models.Class) error
	GetClass(ctx context.Context, className string) (*models.Class, error)
	AddProperty(ctx context.Context, className string, property *models.Property) error
}

// ClassName maps an index name such as "song-lyrics" to the Weaviate class
// "VectorizeSongLyrics". Weaviate class names must start with an upper-case letter.
func ClassName(index string) string {
	var b strings.Builder
	b.WriteString("Vectorize")
	upper := true
	for _, r := range index {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

func properties() []*models.Property {
	return []*models.Property{
		{
			Name:     PropChunkID,
			DataType: []string{"string"}, // caller supplied id (exact match)
		},
		{
			Name:     PropMetadata,
			DataType: []string{"text"}, // JSON encoded
		},
	}
}

// EnsureSchema creates the class backing an index if it is missing, and adds
// any properties an older class lacks.
func EnsureSchema(ctx context.Context, client SchemaClient, className string) error {
	exists, err := client.ClassExists(ctx, className)
	if err != nil {
		return err
	}

	props := properties()

	if !exists {
		class := &models.Class{
			Class:       className,
			Description: "Embedded text chunks upserted by the ingest worker",
			Vectorizer:  "none",
			Properties:  props,
		}
		return client.CreateClass(ctx, class)
	}

	class, err := client.GetClass(ctx, className)
	if err != nil {
		return err
	}

	existingProps := make(map[string]bool)
	for _, p := range class.Properties {
		existingProps[p.Name] = true
	}

	for _, p := range props {
		if !existingProps[p.Name] {
			if err := client.AddProperty(ctx, className, p); err != nil {
				return err
			}
		}
	}

	return nil
}
