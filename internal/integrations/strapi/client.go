/**
 * @description
 * Client for the Strapi CMS that owns the editorial content (country pages).
 * Used by the worker to reconcile the countries table against the CMS.
 *
 * @dependencies
 * - github.com/go-resty/resty/v2
 * - backend/internal/config
 */

package strapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/materia-project/backend/internal/config"
)

const (
	requestTimeout = 20 * time.Second
	pageSize       = 100
)

type Client struct {
	baseURL string
	token   string
	client  *resty.Client
}

type countryListResponse struct {
	Data []struct {
		ID         int `json:"id"`
		Attributes struct {
			Name string `json:"Name"`
		} `json:"attributes"`
	} `json:"data"`
	Meta struct {
		Pagination struct {
			Page      int `json:"page"`
			PageSize  int `json:"pageSize"`
			PageCount int `json:"pageCount"`
			Total     int `json:"total"`
		} `json:"pagination"`
	} `json:"meta"`
}

func NewClient(cfg *config.Config) *Client {
	client := resty.New()
	client.SetTimeout(requestTimeout)

	return &Client{
		baseURL: strings.TrimRight(cfg.Services.StrapiURL, "/"),
		token:   cfg.Services.StrapiToken,
		client:  client,
	}
}

// Countries fetches every country name from the CMS, walking pagination until
// the last page.
func (c *Client) Countries(ctx context.Context) ([]string, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("strapi url is not configured")
	}

	var names []string
	page := 1

	for {
		resp, err := c.client.R().
			SetContext(ctx).
			SetHeader("Authorization", "Bearer "+c.token).
			SetQueryParams(map[string]string{
				"pagination[page]":     strconv.Itoa(page),
				"pagination[pageSize]": strconv.Itoa(pageSize),
				"fields[0]":            "Name",
			}).
			Get(c.baseURL + "/api/countries")
		if err != nil {
			return nil, fmt.Errorf("strapi request failed: %w", err)
		}
		if resp.StatusCode() != http.StatusOK {
			return nil, fmt.Errorf("strapi returned status %d", resp.StatusCode())
		}

		var body countryListResponse
		if err := json.Unmarshal(resp.Body(), &body); err != nil {
			return nil, fmt.Errorf("failed to decode strapi response: %w", err)
		}

		for _, item := range body.Data {
			name := strings.TrimSpace(item.Attributes.Name)
			if name != "" {
				names = append(names, name)
			}
		}

		if len(body.Data) == 0 || page >= body.Meta.Pagination.PageCount {
			break
		}
		page++
	}

	return names, nil
}
