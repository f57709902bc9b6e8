package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/caramaschiHG/Dilutio/internal/compounding"
	httpapi "github.com/caramaschiHG/Dilutio/internal/http"
	"github.com/caramaschiHG/Dilutio/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrPrecondition 服务端拒绝生成 POP（HTTP 422）
var ErrPrecondition = errors.New("precondition failed")

// APIError 服务端返回的错误信封
type APIError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dilutio API error: %s (status: %d, code: %d)", e.Message, e.StatusCode, e.Code)
}

// Unwrap 422 映射为 ErrPrecondition
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnprocessableEntity {
		return ErrPrecondition
	}
	return nil
}

// Client dilutio HTTP API 客户端
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// New 创建客户端
func New(baseURL string, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: httpClient,
		logger:     logger,
	}
}

// ComputeBase 远程基质标准化
func (c *Client) ComputeBase(ctx context.Context, req models.BaseRequest) (compounding.BaseResult, error) {
	return post[compounding.BaseResult](ctx, c, "/dilutio/api/v1/base/compute", req)
}

// ComputeFractions 远程患者分装计算
func (c *Client) ComputeFractions(ctx context.Context, req models.FractionsRequest) ([]compounding.PatientResult, error) {
	out, err := post[[]compounding.PatientResult](ctx, c, "/dilutio/api/v1/fractions/compute", req)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []compounding.PatientResult{}
	}
	return out, nil
}

// ComputeBatch 远程批次重算
func (c *Client) ComputeBatch(ctx context.Context, req models.BatchRequest) (*models.BatchCalculation, error) {
	out, err := post[models.BatchCalculation](ctx, c, "/dilutio/api/v1/batch/compute", req)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GeneratePOP 下载 POP 工作簿，返回文件内容与批号
func (c *Client) GeneratePOP(ctx context.Context, req models.POPRequest) ([]byte, string, error) {
	var failure httpapi.Result[any]
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("Accept", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet, application/json").
		SetBody(req).
		SetError(&failure).
		Post("/dilutio/api/v1/batch/pop")
	if err != nil {
		c.logger.Error("dilutio API call failed", zap.String("path", "/dilutio/api/v1/batch/pop"), zap.Error(err))
		return nil, "", fmt.Errorf("failed to call dilutio API: %w", err)
	}
	if resp.IsError() {
		return nil, "", &APIError{StatusCode: resp.StatusCode(), Code: failure.Code, Message: failure.Message}
	}

	c.logger.Info("Downloaded POP workbook",
		zap.String("batch_number", resp.Header().Get("X-Batch-Number")),
		zap.Int("size_bytes", len(resp.Body())),
	)
	return resp.Body(), resp.Header().Get("X-Batch-Number"), nil
}

// post 发送 JSON 请求并校验信封 code
func post[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	var (
		out     httpapi.Result[T]
		failure httpapi.Result[any]
		zero    T
	)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&failure).
		Post(path)
	if err != nil {
		c.logger.Error("dilutio API call failed", zap.String("path", path), zap.Error(err))
		return zero, fmt.Errorf("failed to call dilutio API: %w", err)
	}
	if resp.IsError() {
		return zero, &APIError{StatusCode: resp.StatusCode(), Code: failure.Code, Message: failure.Message}
	}
	if out.Code != httpapi.ResultSuccess {
		return zero, &APIError{StatusCode: resp.StatusCode(), Code: out.Code, Message: out.Message}
	}
	return out.Result, nil
}
