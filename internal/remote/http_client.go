package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"taskSync/internal/logger"
	"taskSync/internal/models/task"

	"go.uber.org/zap"
)

// HTTPClient — клиент REST-бэкенда учёта задач с bearer-авторизацией.
// Транспортные сбои и статусы ответов переводятся в типизированные ошибки.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) FetchTasks(ctx context.Context) ([]*task.Task, error) {
	var tasks []*task.Task
	if err := c.do(ctx, http.MethodGet, "/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *HTTPClient) CreateTask(ctx context.Context, payload task.NewTaskPayload) (*task.Task, error) {
	var created task.Task
	if err := c.do(ctx, http.MethodPost, "/tasks", payload, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *HTTPClient) UpdateTask(ctx context.Context, id string, patch task.Patch) (*task.Task, error) {
	var updated task.Task
	if err := c.do(ctx, http.MethodPatch, "/tasks/"+id, patch, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *HTTPClient) FetchStatusOptions(ctx context.Context) ([]task.StatusOption, error) {
	var options []task.StatusOption
	if err := c.do(ctx, http.MethodGet, "/status-options", nil, &options); err != nil {
		return nil, err
	}
	return options, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any, out any) error {
	if c.baseURL == "" || c.token == "" {
		return NewError(ErrNotConfigured, "адрес или токен удалённой стороны не заданы")
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: ErrUnknown, Message: "сериализация тела запроса", Err: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Kind: ErrUnknown, Message: "создание запроса", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
			return &Error{Kind: ErrTimeout, Message: method + " " + path, Err: err}
		}
		return &Error{Kind: ErrUnknown, Message: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	logger.Debug("Remote: Ответ получен",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("ms", time.Since(start)),
	)

	if resp.StatusCode >= 400 {
		return statusError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: ErrUnknown, Message: "разбор тела ответа", Err: err}
	}
	return nil
}

func isClientTimeout(err error) bool {
	var ue interface{ Timeout() bool }
	return errors.As(err, &ue) && ue.Timeout()
}

func statusError(resp *http.Response) *Error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return NewError(ErrUnauthenticated, string(snippet))
	case http.StatusNotFound:
		return NewError(ErrNotFound, string(snippet))
	case http.StatusTooManyRequests:
		return NewError(ErrRateLimited, string(snippet))
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return NewError(ErrTimeout, string(snippet))
	default:
		return NewError(ErrUnknown, fmt.Sprintf("статус %d: %s", resp.StatusCode, snippet))
	}
}
