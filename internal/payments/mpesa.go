package payments

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sync"
	"time"

	"fundi/internal/shared/config"
)

// phoneNumberRx matches the international digit format the provider accepts:
// the 254 country prefix followed by exactly 9 digits.
var phoneNumberRx = regexp.MustCompile(`^254\d{9}$`)

// ValidatePhoneNumber rejects anything that is not 254 + 9 digits. Performed
// before any network call so malformed input never reaches the provider.
func ValidatePhoneNumber(phone string) error {
	if !phoneNumberRx.MatchString(phone) {
		return ErrInvalidPhoneNumber
	}
	return nil
}

// PushResult carries the correlation identifiers returned by a push
// submission. CheckoutRequestID is the key the asynchronous callback and the
// status poller are matched on.
type PushResult struct {
	CheckoutRequestID string
	MerchantRequestID string
	CustomerMessage   string
}

// PushClient submits STK push requests to the mobile-money provider.
type PushClient interface {
	InitiatePush(ctx context.Context, amount int64, phoneNumber, accountRef string) (*PushResult, error)
}

// DarajaClient implements PushClient against the Safaricom Daraja API. Each
// push performs a client-credentials token exchange (cached until expiry)
// followed by the signed STK push submission.
type DarajaClient struct {
	cfg        config.MpesaConfig
	httpClient *http.Client
	now        func() time.Time

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewDarajaClient(cfg config.MpesaConfig) *DarajaClient {
	return &DarajaClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		now:        time.Now,
	}
}

type darajaTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

type darajaPushRequest struct {
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
	ErrorCode           string `json:"errorCode"`
	ErrorMessage        string `json:"errorMessage"`
}

// InitiatePush validates input, exchanges credentials for a bearer token and
// submits the push. The booking reference travels as AccountReference so the
// provider statement can be reconciled against bookings.
func (c *DarajaClient) InitiatePush(ctx context.Context, amount int64, phoneNumber, accountRef string) (*PushResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if err := ValidatePhoneNumber(phoneNumber); err != nil {
		return nil, err
	}

	token, err := c.getAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	timestamp := c.now().Format("20060102150405")
	payload := darajaPushRequest{
		BusinessShortCode: c.cfg.BusinessShortCode,
		Password:          c.password(timestamp),
		Timestamp:         timestamp,
		TransactionType:   c.cfg.TransactionType,
		Amount:            amount,
		PartyA:            phoneNumber,
		PartyB:            c.cfg.BusinessShortCode,
		PhoneNumber:       phoneNumber,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  accountRef,
		TransactionDesc:   "Fundi booking payment",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("push submission failed: %w", err)
	}
	defer resp.Body.Close()

	var pushResp darajaPushResponse
	if err := json.NewDecoder(resp.Body).Decode(&pushResp); err != nil {
		return nil, fmt.Errorf("failed to decode push response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || pushResp.ResponseCode != "0" {
		msg := pushResp.ResponseDescription
		if pushResp.ErrorMessage != "" {
			msg = pushResp.ErrorMessage
		}
		return nil, fmt.Errorf("provider rejected push (status %d): %s", resp.StatusCode, msg)
	}

	return &PushResult{
		CheckoutRequestID: pushResp.CheckoutRequestID,
		MerchantRequestID: pushResp.MerchantRequestID,
		CustomerMessage:   pushResp.CustomerMessage,
	}, nil
}

// password encodes shortcode + passkey + timestamp, the signature Daraja
// expects on every push.
func (c *DarajaClient) password(timestamp string) string {
	return base64.StdEncoding.EncodeToString(
		[]byte(c.cfg.BusinessShortCode + c.cfg.Passkey + timestamp))
}

// getAccessToken performs the client-credentials exchange, reusing the cached
// token until shortly before expiry.
func (c *DarajaClient) getAccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && c.now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp darajaTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned an empty token")
	}

	// Daraja reports expiry in seconds as a string; refresh one minute early
	ttl := 3599 * time.Second
	if d, err := time.ParseDuration(tokenResp.ExpiresIn + "s"); err == nil && d > 0 {
		ttl = d
	}
	c.accessToken = tokenResp.AccessToken
	c.tokenExpiry = c.now().Add(ttl - time.Minute)

	return c.accessToken, nil
}
