package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"compost-be/internal/config"
	"compost-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	tokenPath   = "/oauth/v1/generate?grant_type=client_credentials"
	stkPushPath = "/mpesa/stkpush/v1/processrequest"
	b2cPath     = "/mpesa/b2c/v1/paymentrequest"

	timestampLayout = "20060102150405"
)

type mpesaGateway struct {
	cfg        config.MpesaConfig
	httpClient *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// ----------------- Constructor -----------------

func NewMpesaGateway(cfg config.MpesaConfig) Gateway {
	if cfg.ConsumerKey == "" && !cfg.Sandbox {
		logger.L().Warn("M-Pesa consumer key is empty")
	}

	return &mpesaGateway{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ----------------- OAuth token -----------------

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

func (g *mpesaGateway) accessToken(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.token != "" && time.Now().Before(g.tokenExpiry) {
		return g.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, "GET", g.cfg.BaseURL+tokenPath, nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(g.cfg.ConsumerKey, g.cfg.ConsumerSecret)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("mpesa token request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read mpesa token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &GatewayError{
			Code:        fmt.Sprint(resp.StatusCode),
			Description: string(bodyBytes),
		}
	}

	var tr tokenResponse
	if err := json.Unmarshal(bodyBytes, &tr); err != nil {
		return "", err
	}
	if tr.AccessToken == "" {
		return "", &GatewayError{Code: "token", Description: "empty access token"}
	}

	g.token = tr.AccessToken
	// Daraja tokens live for an hour; refresh a bit early.
	g.tokenExpiry = time.Now().Add(55 * time.Minute)
	return g.token, nil
}

// ----------------- STK push -----------------

type stkPushAPIResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
	ErrorCode           string `json:"errorCode"`
	ErrorMessage        string `json:"errorMessage"`
}

func (g *mpesaGateway) STKPush(ctx context.Context, pushReq STKPushRequest) (*STKPushResponse, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("account_reference", pushReq.AccountReference),
		zap.Float64("amount", pushReq.Amount),
		zap.String("phone", pushReq.PhoneNumber),
	)

	token, err := g.accessToken(ctx)
	if err != nil {
		log.Error("failed to obtain mpesa token", zap.Error(err))
		return nil, err
	}

	timestamp := time.Now().Format(timestampLayout)
	password := base64.StdEncoding.EncodeToString(
		[]byte(g.cfg.ShortCode + g.cfg.Passkey + timestamp))

	body := map[string]interface{}{
		"BusinessShortCode": g.cfg.ShortCode,
		"Password":          password,
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            int64(pushReq.Amount),
		"PartyA":            pushReq.PhoneNumber,
		"PartyB":            g.cfg.ShortCode,
		"PhoneNumber":       pushReq.PhoneNumber,
		"CallBackURL":       g.cfg.CallbackURL,
		"AccountReference":  pushReq.AccountReference,
		"TransactionDesc":   pushReq.Description,
	}

	var apiResp stkPushAPIResponse
	if err := g.post(ctx, stkPushPath, token, body, &apiResp); err != nil {
		log.Error("STK push request failed", zap.Error(err))
		return nil, err
	}

	if apiResp.ErrorCode != "" {
		log.Error("STK push rejected",
			zap.String("error_code", apiResp.ErrorCode),
			zap.String("error_message", apiResp.ErrorMessage),
		)
		return nil, &GatewayError{Code: apiResp.ErrorCode, Description: apiResp.ErrorMessage}
	}
	if apiResp.ResponseCode != "0" {
		return nil, &GatewayError{Code: apiResp.ResponseCode, Description: apiResp.ResponseDescription}
	}

	log.Info("STK push initiated",
		zap.String("checkout_request_id", apiResp.CheckoutRequestID),
	)

	return &STKPushResponse{
		MerchantRequestID:   apiResp.MerchantRequestID,
		CheckoutRequestID:   apiResp.CheckoutRequestID,
		ResponseCode:        apiResp.ResponseCode,
		ResponseDescription: apiResp.ResponseDescription,
		CustomerMessage:     apiResp.CustomerMessage,
	}, nil
}

// ----------------- B2C payout -----------------

type b2cAPIResponse struct {
	ConversationID           string `json:"ConversationID"`
	OriginatorConversationID string `json:"OriginatorConversationID"`
	ResponseCode             string `json:"ResponseCode"`
	ResponseDescription      string `json:"ResponseDescription"`
	ErrorCode                string `json:"errorCode"`
	ErrorMessage             string `json:"errorMessage"`
}

func (g *mpesaGateway) B2CPayout(ctx context.Context, payoutReq B2CRequest) (*B2CResponse, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("reference", payoutReq.Reference),
		zap.Float64("amount", payoutReq.Amount),
		zap.String("phone", payoutReq.PhoneNumber),
	)

	// Sandbox mode synthesizes a successful payout without touching the
	// network. Enabled only through the explicit config flag.
	if g.cfg.Sandbox {
		txnID := "SANDBOX-" + uuid.NewString()[:8]
		log.Info("sandbox B2C payout simulated", zap.String("transaction_id", txnID))
		return &B2CResponse{
			ConversationID:      txnID,
			ResponseCode:        "0",
			ResponseDescription: "Sandbox payout accepted",
			TransactionID:       txnID,
			Sandbox:             true,
		}, nil
	}

	token, err := g.accessToken(ctx)
	if err != nil {
		log.Error("failed to obtain mpesa token", zap.Error(err))
		return nil, err
	}

	body := map[string]interface{}{
		"InitiatorName":      g.cfg.InitiatorName,
		"SecurityCredential": g.cfg.SecurityCredential,
		"CommandID":          "BusinessPayment",
		"Amount":             int64(payoutReq.Amount),
		"PartyA":             g.cfg.ShortCode,
		"PartyB":             payoutReq.PhoneNumber,
		"Remarks":            payoutReq.Remarks,
		"QueueTimeOutURL":    g.cfg.TimeoutURL,
		"ResultURL":          g.cfg.ResultURL,
		"Occasion":           payoutReq.Reference,
	}

	var apiResp b2cAPIResponse
	if err := g.post(ctx, b2cPath, token, body, &apiResp); err != nil {
		log.Error("B2C payout request failed", zap.Error(err))
		return nil, err
	}

	if apiResp.ErrorCode != "" {
		log.Error("B2C payout rejected",
			zap.String("error_code", apiResp.ErrorCode),
			zap.String("error_message", apiResp.ErrorMessage),
		)
		return nil, &GatewayError{Code: apiResp.ErrorCode, Description: apiResp.ErrorMessage}
	}
	if apiResp.ResponseCode != "0" {
		return nil, &GatewayError{Code: apiResp.ResponseCode, Description: apiResp.ResponseDescription}
	}

	log.Info("B2C payout accepted",
		zap.String("conversation_id", apiResp.ConversationID),
	)

	return &B2CResponse{
		ConversationID:      apiResp.ConversationID,
		ResponseCode:        apiResp.ResponseCode,
		ResponseDescription: apiResp.ResponseDescription,
		TransactionID:       apiResp.ConversationID,
	}, nil
}

// ----------------- HTTP plumbing -----------------

func (g *mpesaGateway) post(ctx context.Context, path, token string, body any, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.cfg.BaseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Authorization", "Bearer "+token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read mpesa response: %w", err)
	}

	// Daraja returns errorCode/errorMessage in the body for both 4xx and
	// some 200 responses, so decode regardless of status.
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return &GatewayError{
				Code:        fmt.Sprint(resp.StatusCode),
				Description: string(bodyBytes),
			}
		}
		return err
	}
	return nil
}
