package remote

import (
	"context"
	"net/http"
	"net/url"
)

// FavoritesClient calls the favorites API on behalf of an identity.
type FavoritesClient struct {
	conn conn
}

// NewFavoritesClient constructs a FavoritesClient for the server at baseURL.
func NewFavoritesClient(baseURL, token string) *FavoritesClient {
	return &FavoritesClient{conn: newConn(baseURL, token)}
}

func identityHeader(identityID string) http.Header {
	h := http.Header{}
	h.Set(IdentityHeader, identityID)
	return h
}

// List returns the identity's favorite cities, oldest first.
func (c *FavoritesClient) List(ctx context.Context, identityID string) ([]string, error) {
	var body struct {
		Favorites []string `json:"favorites"`
	}
	if err := c.conn.do(ctx, http.MethodGet, "/api/v1/favorites", nil, identityHeader(identityID), &body); err != nil {
		return nil, err
	}
	if body.Favorites == nil {
		return []string{}, nil
	}
	return body.Favorites, nil
}

// Insert stores city for the identity. An existing entry is not an error.
func (c *FavoritesClient) Insert(ctx context.Context, identityID, city string) error {
	body := map[string]string{"city": city}
	return c.conn.do(ctx, http.MethodPost, "/api/v1/favorites", body, identityHeader(identityID), nil)
}

// Delete removes city for the identity.
func (c *FavoritesClient) Delete(ctx context.Context, identityID, city string) error {
	path := "/api/v1/favorites?" + url.Values{"city": {city}}.Encode()
	return c.conn.do(ctx, http.MethodDelete, path, nil, identityHeader(identityID), nil)
}
