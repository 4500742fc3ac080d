// Package client holds the outbound HTTP gateways of the ledger service.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/domain"
	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/infra/resilience"
)

var tracer = otel.Tracer("client")

const darajaService = "mpesa"

// DarajaConfig holds the Safaricom Daraja credentials of one paybill/till.
type DarajaConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
	// TransactionType is CustomerPayBillOnline or CustomerBuyGoodsOnline.
	TransactionType string
}

// DarajaClient is the M-Pesa STK push gateway backed by the Daraja REST API.
type DarajaClient struct {
	httpClient *http.Client
	conf       DarajaConfig
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	now        func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewDarajaClient creates a new DarajaClient.
func NewDarajaClient(httpClient *http.Client, conf DarajaConfig, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *DarajaClient {
	if conf.TransactionType == "" {
		conf.TransactionType = "CustomerPayBillOnline"
	}
	return &DarajaClient{
		httpClient: httpClient,
		conf:       conf,
		cb:         cb,
		cfg:        cfg,
		now:        time.Now,
	}
}

type darajaPushBody struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type darajaPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

type darajaQueryBody struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

type darajaQueryResponse struct {
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	ResultCode          string `json:"ResultCode"`
	ResultDesc          string `json:"ResultDesc"`
}

// darajaError is the error envelope Daraja returns on non-2xx responses.
type darajaError struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

type darajaToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// InitiateSTKPush sends a payment prompt to the customer's handset.
func (c *DarajaClient) InitiateSTKPush(ctx context.Context, req *domain.STKPushRequest) (*domain.STKPushResponse, error) {
	ctx, span := tracer.Start(ctx, "DarajaClient.InitiateSTKPush")
	defer span.End()
	span.SetAttributes(attribute.String("mpesa.account_reference", req.AccountReference))

	ts := c.timestamp()
	body := darajaPushBody{
		BusinessShortCode: c.conf.ShortCode,
		Password:          c.password(ts),
		Timestamp:         ts,
		TransactionType:   c.conf.TransactionType,
		Amount:            req.Amount.IntPart(),
		PartyA:            req.PhoneNumber,
		PartyB:            c.conf.ShortCode,
		PhoneNumber:       req.PhoneNumber,
		CallBackURL:       c.conf.CallbackURL,
		AccountReference:  req.AccountReference,
		TransactionDesc:   req.TransactionDesc,
	}

	var out darajaPushResponse
	if _, err := c.execute(ctx, "/mpesa/stkpush/v1/processrequest", body, &out); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("mpesa.checkout_request_id", out.CheckoutRequestID))

	return &domain.STKPushResponse{
		Success:             out.ResponseCode == "0",
		CheckoutRequestID:   out.CheckoutRequestID,
		MerchantRequestID:   out.MerchantRequestID,
		ResponseDescription: out.ResponseDescription,
		CustomerMessage:     out.CustomerMessage,
	}, nil
}

// QuerySTKStatus asks Daraja for the state of a push. A push that is still being
// processed comes back as a successful query with the "still processing" result code.
func (c *DarajaClient) QuerySTKStatus(ctx context.Context, checkoutRequestID string) (*domain.STKQueryResponse, error) {
	ctx, span := tracer.Start(ctx, "DarajaClient.QuerySTKStatus")
	defer span.End()
	span.SetAttributes(attribute.String("mpesa.checkout_request_id", checkoutRequestID))

	ts := c.timestamp()
	body := darajaQueryBody{
		BusinessShortCode: c.conf.ShortCode,
		Password:          c.password(ts),
		Timestamp:         ts,
		CheckoutRequestID: checkoutRequestID,
	}

	var out darajaQueryResponse
	derr, err := c.execute(ctx, "/mpesa/stkpushquery/v1/query", body, &out)
	if err != nil {
		return nil, err
	}
	if derr != nil {
		return &domain.STKQueryResponse{Success: true, ResultCode: derr.ErrorCode, ResultDesc: derr.ErrorMessage}, nil
	}
	return &domain.STKQueryResponse{
		Success:    out.ResponseCode == "0",
		ResultCode: out.ResultCode,
		ResultDesc: out.ResultDesc,
	}, nil
}

// execute POSTs body to path through the circuit breaker with retries and decodes the
// 200 response into out. A "still processing" error envelope is returned as derr.
func (c *DarajaClient) execute(ctx context.Context, path string, body, out any) (*darajaError, error) {
	var processing *darajaError

	_, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			processing = nil

			token, err := c.accessToken(ctx)
			if err != nil {
				return err
			}
			payload, err := json.Marshal(body)
			if err != nil {
				return resilience.Permanent(err)
			}
			httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.conf.BaseURL+path, bytes.NewReader(payload))
			if err != nil {
				return resilience.Permanent(err)
			}
			httpReq.Header.Set("Content-Type", "application/json")
			httpReq.Header.Set("Authorization", "Bearer "+token)

			resp, err := c.httpClient.Do(httpReq)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusOK {
				return json.NewDecoder(resp.Body).Decode(out)
			}

			raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
			var derr darajaError
			_ = json.Unmarshal(raw, &derr)
			if derr.ErrorCode == domain.STKResultStillProcessing {
				processing = &derr
				return nil
			}
			if resp.StatusCode == http.StatusUnauthorized {
				c.invalidateToken()
			}
			statusErr := fmt.Errorf("daraja %s returned status %d: %s", path, resp.StatusCode, derr.ErrorMessage)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusTooManyRequests {
				return resilience.Permanent(statusErr)
			}
			return statusErr
		})
		return nil, innerErr
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &domain.ErrCircuitOpen{Service: darajaService}
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &domain.ErrTimeout{Operation: "mpesa " + path}
		}
		return nil, &domain.ErrExternalService{Service: darajaService, Err: err}
	}
	return processing, nil
}

// accessToken returns a cached OAuth token, fetching a new one shortly before expiry.
func (c *DarajaClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	url := c.conf.BaseURL + "/oauth/v1/generate?grant_type=client_credentials"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", resilience.Permanent(err)
	}
	req.SetBasicAuth(c.conf.ConsumerKey, c.conf.ConsumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("daraja oauth returned status %d", resp.StatusCode)
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
			return "", resilience.Permanent(err)
		}
		return "", err
	}

	var tok darajaToken
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decode oauth token: %w", err)
	}
	ttl := time.Hour
	if secs, err := strconv.Atoi(tok.ExpiresIn); err == nil && secs > 0 {
		ttl = time.Duration(secs) * time.Second
	}
	c.token = tok.AccessToken
	c.tokenExpiry = c.now().Add(ttl - time.Minute)
	return c.token, nil
}

func (c *DarajaClient) invalidateToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// timestamp is Daraja's yyyyMMddHHmmss in East Africa Time.
func (c *DarajaClient) timestamp() string {
	return c.now().In(eat).Format("20060102150405")
}

// password is base64(shortcode + passkey + timestamp).
func (c *DarajaClient) password(ts string) string {
	return base64.StdEncoding.EncodeToString([]byte(c.conf.ShortCode + c.conf.Passkey + ts))
}

var eat = time.FixedZone("EAT", 3*60*60)
