package client

import (
	"context"
	"fmt"
)

// Products fetches the product list.
func (c *APIClient) Products(ctx context.Context) Result {
	return c.Get(ctx, "/products")
}

// ProductByID fetches a single product by numeric id.
func (c *APIClient) ProductByID(ctx context.Context, id int) Result {
	return c.Get(ctx, fmt.Sprintf("/products/%d", id))
}

// Details fetches the details resource holding features and how-to steps.
func (c *APIClient) Details(ctx context.Context, detailsID int) Result {
	return c.Get(ctx, fmt.Sprintf("/details/%d", detailsID))
}

// Ping reports whether the product list endpoint answers.
func (c *APIClient) Ping(ctx context.Context) bool {
	return c.Get(ctx, "/products", SkipCache()).Success
}
