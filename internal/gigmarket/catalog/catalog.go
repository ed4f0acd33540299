package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gig-market/internal/common/catalogprotocol"
	"gig-market/pkg/logging"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

var (
	ErrServiceNotFound = errors.New("service not found")
)

type Config struct {
	ServerAddress string
	Timeout       time.Duration
}

// Catalog talks to the service-listing collaborator over HTTP.
type Catalog struct {
	client *resty.Client
	logger *logging.ZapLogger
	cfg    Config
}

func New(cfg Config, logger *logging.ZapLogger) *Catalog {
	client := resty.New().SetBaseURL(cfg.ServerAddress)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	return &Catalog{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

func (c *Catalog) GetService(ctx context.Context, serviceID string) (catalogprotocol.Service, error) {
	resp, err := c.client.
		R().
		SetContext(ctx).
		SetPathParam("id", serviceID).
		Get("/api/services/{id}")
	if err != nil {
		return catalogprotocol.Service{}, fmt.Errorf("get request failed: %w", err)
	}
	switch resp.StatusCode() {
	case http.StatusNotFound:
		c.logger.DebugCtx(ctx, "service not found", zap.String("serviceID", serviceID))
		return catalogprotocol.Service{}, ErrServiceNotFound
	case http.StatusOK:
		res := catalogprotocol.Service{}
		if err := json.Unmarshal(resp.Body(), &res); err != nil {
			c.logger.ErrorCtx(ctx, "error unmarshalling service response", zap.Error(err))
			return catalogprotocol.Service{}, fmt.Errorf("error unmarshalling service response: %w", err)
		}
		return res, nil
	default:
		return catalogprotocol.Service{}, fmt.Errorf("unexpected status code %v", resp.StatusCode())
	}
}

func (c *Catalog) IncrementOrderCount(ctx context.Context, serviceID string) error {
	resp, err := c.client.
		R().
		SetContext(ctx).
		SetPathParam("id", serviceID).
		Post("/api/services/{id}/orders")
	if err != nil {
		return fmt.Errorf("post request failed: %w", err)
	}
	switch resp.StatusCode() {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return ErrServiceNotFound
	default:
		return fmt.Errorf("unexpected status code %v", resp.StatusCode())
	}
}
