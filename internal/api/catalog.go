package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
)

// ProductQuery filters the catalog listing.
type ProductQuery struct {
	Categoria string
	Q         string
}

// ProductInput is the editable part of a product.
type ProductInput struct {
	Nombre      string  `json:"nombre"`
	Descripcion string  `json:"descripcion"`
	Precio      float64 `json:"precio"`
	Stock       int     `json:"stock"`
	Categoria   string  `json:"categoria"`
}

// ImageUpload is an image sent as the "imagen" multipart field.
type ImageUpload struct {
	Filename string
	Content  io.Reader
}

// Products lists the catalog, optionally filtered by category and text.
func (c *Client) Products(ctx context.Context, query ProductQuery) ([]Product, error) {
	values := url.Values{}
	if cat := strings.TrimSpace(query.Categoria); cat != "" {
		values.Set("categoria", cat)
	}
	if q := strings.TrimSpace(query.Q); q != "" {
		values.Set("q", q)
	}
	var list productList
	if err := c.get(ctx, "/producto/", values, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Product fetches one catalog entry.
func (c *Client) Product(ctx context.Context, id string) (Product, error) {
	if strings.TrimSpace(id) == "" {
		return Product{}, fmt.Errorf("product id required")
	}
	var p Product
	if err := c.get(ctx, productPath(id), nil, &p); err != nil {
		return Product{}, err
	}
	return p, nil
}

// CreateProduct adds a catalog entry. When image is non-nil the request is
// sent as multipart form data.
func (c *Client) CreateProduct(ctx context.Context, in ProductInput, image *ImageUpload) (Product, error) {
	return c.writeProduct(ctx, http.MethodPost, "/producto/", in, image)
}

// UpdateProduct replaces a catalog entry.
func (c *Client) UpdateProduct(ctx context.Context, id string, in ProductInput, image *ImageUpload) (Product, error) {
	if strings.TrimSpace(id) == "" {
		return Product{}, fmt.Errorf("product id required")
	}
	return c.writeProduct(ctx, http.MethodPut, productPath(id), in, image)
}

// DeleteProduct removes a catalog entry.
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("product id required")
	}
	return c.send(ctx, request{method: http.MethodDelete, rel: &url.URL{Path: productPath(id)}}, nil)
}

func (c *Client) writeProduct(ctx context.Context, method, p string, in ProductInput, image *ImageUpload) (Product, error) {
	var out Product
	if image == nil {
		if err := c.sendJSON(ctx, method, p, in, &out); err != nil {
			return Product{}, err
		}
		return out, nil
	}
	body, contentType, err := productForm(in, image)
	if err != nil {
		return Product{}, err
	}
	req := request{method: method, rel: &url.URL{Path: p}, body: body, contentType: contentType}
	if err := c.send(ctx, req, &out); err != nil {
		return Product{}, err
	}
	return out, nil
}

func productForm(in ProductInput, image *ImageUpload) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"nombre", in.Nombre},
		{"descripcion", in.Descripcion},
		{"precio", strconv.FormatFloat(in.Precio, 'f', -1, 64)},
		{"stock", strconv.Itoa(in.Stock)},
		{"categoria", in.Categoria},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("write form field %s: %w", f[0], err)
		}
	}
	name := path.Base(strings.TrimSpace(image.Filename))
	if name == "" || name == "." || name == "/" {
		name = "imagen"
	}
	part, err := w.CreateFormFile("imagen", name)
	if err != nil {
		return nil, "", fmt.Errorf("create image part: %w", err)
	}
	if image.Content != nil {
		if _, err := io.Copy(part, image.Content); err != nil {
			return nil, "", fmt.Errorf("copy image: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func productPath(id string) string {
	return "/producto/" + url.PathEscape(strings.TrimSpace(id))
}
