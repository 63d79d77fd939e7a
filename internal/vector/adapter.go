package vector

import (
	"context"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
)

// Client narrows the Weaviate client to the schema and batch calls the worker makes.
type Client struct {
	wv *weaviate.Client
}

func NewClient(host, scheme string) (*Client, error) {
	wv, err := weaviate.NewClient(weaviate.Config{Host: host, Scheme: scheme})
	if err != nil {
		return nil, err
	}
	return &Client{wv: wv}, nil
}

func (c *Client) ClassExists(ctx context.Context, className string) (bool, error) {
	return c.wv.Schema().ClassExistenceChecker().WithClassName(className).Do(ctx)
}

func (c *Client) CreateClass(ctx context.Context, class *models.Class) error {
	return c.wv.Schema().ClassCreator().WithClass(class).Do(ctx)
}

func (c *Client) GetClass(ctx context.Context, className string) (*models.Class, error) {
	return c.wv.Schema().ClassGetter().WithClassName(className).Do(ctx)
}

func (c *Client) AddProperty(ctx context.Context, className string, property *models.Property) error {
	return c.wv.Schema().PropertyCreator().WithClassName(className).WithProperty(property).Do(ctx)
}

// BatchObjects writes objects through /v1/batch/objects. Objects whose id
// already exists are replaced.
func (c *Client) BatchObjects(ctx context.Context, objects []*models.Object) ([]models.ObjectsGetResponse, error) {
	return c.wv.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
}
