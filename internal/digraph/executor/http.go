package executor

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/coreflow/coreflow/internal/coreerr"
	"github.com/coreflow/coreflow/internal/model"
)

// HTTP runs a task as an HTTP/HTTPS request, classifying the response by
// status code: 2xx is success, everything else (including network
// failures) is a failed ExecutionResult. A missing http config or a URL
// rejected by the SSRF check is returned as a Go error instead.
type HTTP struct {
	client *resty.Client
}

func NewHTTP() *HTTP {
	return &HTTP{client: resty.New().SetHeader("User-Agent", "coreflow/1.0")}
}

func (h *HTTP) Execute(ctx context.Context, task model.TaskConfig) (model.ExecutionResult, error) {
	if task.HTTP == nil {
		return model.ExecutionResult{}, coreerr.Validation("task %q has no http config", task.Name)
	}
	cfg := task.HTTP

	if err := checkSSRF(ctx, cfg.URL, cfg.AllowPrivateIPs); err != nil {
		return model.ExecutionResult{}, err
	}

	// The per-request timeout and the scheduler's outer attempt timeout
	// both bound this call; context.WithTimeout naturally takes whichever
	// deadline is sooner.
	reqCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, time.Duration(cfg.Timeout)*time.Second)
		defer cancel()
	}

	req := h.client.R().SetContext(reqCtx)
	for k, v := range cfg.Headers {
		req.SetHeader(k, v)
	}
	if cfg.Body != nil {
		req.SetBody(cfg.Body)
	}

	method := string(cfg.Method)
	if method == "" {
		method = string(model.MethodGet)
	}

	start := time.Now()
	resp, err := req.Execute(method, cfg.URL)
	duration := time.Since(start)

	if err != nil {
		status := model.StatusFailed
		if reqCtx.Err() == context.DeadlineExceeded {
			status = model.StatusTimeout
		}
		return model.ExecutionResult{
			Status:   status,
			Stderr:   "request failed: " + err.Error(),
			Duration: duration,
		}, nil
	}

	body, truncated := truncate(string(resp.Body()), model.MaxResponseSize)
	code := resp.StatusCode()

	status := model.StatusFailed
	var stderr string
	if resp.IsSuccess() {
		status = model.StatusSuccess
	} else {
		stderr = "http request failed with status code"
	}

	return model.ExecutionResult{
		Status:          status,
		Stdout:          body,
		Stderr:          stderr,
		ExitCode:        &code,
		Duration:        duration,
		OutputTruncated: truncated,
	}, nil
}
