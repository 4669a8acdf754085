package click

import (
	"encoding/json"
	"net/url"
)

// Click error codes. The envelope always travels with HTTP 200.
const (
	CodeSuccess             = 0
	CodeSignCheckFailed     = -1
	CodeInvalidAmount       = -2
	CodeAlreadyPaid         = -4
	CodeUserNotFound        = -5
	CodeTransactionNotFound = -6
	CodeSystemError         = -8
	CodeTransactionCanceled = -9
)

// ClickRequest is a normalized prepare/complete callback. Click posts
// either form fields or JSON with numeric types; the handler flattens
// both into strings so signatures are computed over the wire values.
type ClickRequest struct {
	ClickTransID      string
	ServiceID         string
	ClickPaydocID     string
	MerchantTransID   string
	MerchantPrepareID string
	Amount            string
	Action            int
	ErrorCode         int
	ErrorNote         string
	SignTime          string
	SignString        string
}

// wireRequest tolerates Click's mixed JSON typing: ids and amounts may
// arrive as numbers or strings depending on the integration.
type wireRequest struct {
	ClickTransID      json.Number `json:"click_trans_id"`
	ServiceID         json.Number `json:"service_id"`
	ClickPaydocID     json.Number `json:"click_paydoc_id"`
	MerchantTransID   string      `json:"merchant_trans_id"`
	MerchantPrepareID json.Number `json:"merchant_prepare_id"`
	Amount            json.Number `json:"amount"`
	Action            json.Number `json:"action"`
	Error             json.Number `json:"error"`
	ErrorNote         string      `json:"error_note"`
	SignTime          string      `json:"sign_time"`
	SignString        string      `json:"sign_string"`
}

func (w wireRequest) normalize() *ClickRequest {
	action, _ := w.Action.Int64()
	errorCode, _ := w.Error.Int64()
	return &ClickRequest{
		ClickTransID:      w.ClickTransID.String(),
		ServiceID:         w.ServiceID.String(),
		ClickPaydocID:     w.ClickPaydocID.String(),
		MerchantTransID:   w.MerchantTransID,
		MerchantPrepareID: w.MerchantPrepareID.String(),
		Amount:            w.Amount.String(),
		Action:            int(action),
		ErrorCode:         int(errorCode),
		ErrorNote:         w.ErrorNote,
		SignTime:          w.SignTime,
		SignString:        w.SignString,
	}
}

// ParseJSON decodes a JSON callback body.
func ParseJSON(data []byte) (*ClickRequest, error) {
	var w wireRequest
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return w.normalize(), nil
}

// ParseForm decodes a form-encoded callback.
func ParseForm(form url.Values) *ClickRequest {
	req := &ClickRequest{
		ClickTransID:      form.Get("click_trans_id"),
		ServiceID:         form.Get("service_id"),
		ClickPaydocID:     form.Get("click_paydoc_id"),
		MerchantTransID:   form.Get("merchant_trans_id"),
		MerchantPrepareID: form.Get("merchant_prepare_id"),
		Amount:            form.Get("amount"),
		ErrorNote:         form.Get("error_note"),
		SignTime:          form.Get("sign_time"),
		SignString:        form.Get("sign_string"),
	}
	req.Action = atoiOrZero(form.Get("action"))
	req.ErrorCode = atoiOrZero(form.Get("error"))
	return req
}

func atoiOrZero(s string) int {
	n, err := json.Number(s).Int64()
	if err != nil {
		return 0
	}
	return int(n)
}

// ClickResponse is the callback reply envelope. Numbers go back as
// strings; Click accepts both and the signature is over strings anyway.
type ClickResponse struct {
	ClickTransID      string `json:"click_trans_id"`
	MerchantTransID   string `json:"merchant_trans_id"`
	MerchantPrepareID string `json:"merchant_prepare_id,omitempty"`
	MerchantConfirmID string `json:"merchant_confirm_id,omitempty"`
	Error             int    `json:"error"`
	ErrorNote         string `json:"error_note"`
	SignString        string `json:"sign_string,omitempty"`
}
