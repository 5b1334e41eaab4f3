package exchange

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// restClient 是带限速和重试的 HTTP 客户端。
// 公共行情接口限速较松，私有接口共用同一个限速器已经足够保守。
type restClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

func newRESTClient() *restClient {
	return &restClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		// OKX 公共接口约 20 req/2s，留出余量
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
	}
}

// retryableStatus 判断该状态码是否值得重试
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// Do 执行请求：先过限速器，失败按指数退避重试。
// 请求体由调用方通过 req.GetBody 提供，重试时重新生成。
func (c *restClient) Do(ctx context.Context, req *http.Request) ([]byte, error) {
	var body []byte

	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		attempt := req.Clone(ctx)
		if req.GetBody != nil {
			rc, err := req.GetBody()
			if err != nil {
				return backoff.Permanent(err)
			}
			attempt.Body = rc
		}

		resp, err := c.httpClient.Do(attempt)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if retryableStatus(resp.StatusCode) {
			return fmt.Errorf("http %d: %s", resp.StatusCode, string(data))
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("http %d: %s", resp.StatusCode, string(data)))
		}

		body = data
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return body, nil
}
