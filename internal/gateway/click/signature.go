package click

import (
	"crypto/md5"
	"encoding/hex"
	"log/slog"
	"strconv"
	"strings"

	"github.com/muzaffarov/bozor-billing/internal"
)

// Verifier checks Click request signatures against per-tenant
// credentials. A service_id without a configured tenant fails closed.
type Verifier struct {
	byServiceID map[string]internal.ClickTenant
	logger      *slog.Logger
}

func NewVerifier(cfg internal.ClickConfig, logger *slog.Logger) *Verifier {
	byServiceID := make(map[string]internal.ClickTenant, len(cfg.Tenants))
	for _, tenant := range cfg.Tenants {
		byServiceID[tenant.ServiceID] = tenant
	}
	return &Verifier{
		byServiceID: byServiceID,
		logger:      logger,
	}
}

// Verify checks the request's sign_string. Comparison is
// case-insensitive; Click sends lowercase hex but that is not
// guaranteed.
func (v *Verifier) Verify(req *ClickRequest) bool {
	tenant, ok := v.byServiceID[req.ServiceID]
	if !ok {
		v.logger.Warn("click signature check for unknown service", "service_id", req.ServiceID)
		return false
	}

	expected := digest(req.ClickTransID, req.ServiceID, tenant.SecretKey,
		req.MerchantTransID, req.MerchantPrepareID, req.Amount, req.Action, req.SignTime)
	if !strings.EqualFold(expected, req.SignString) {
		v.logger.Warn("click signature mismatch",
			"click_trans_id", req.ClickTransID,
			"service_id", req.ServiceID)
		return false
	}
	return true
}

// Sign produces the response signature for a verified request. The
// prepare id echoes the one being returned, not the one received.
func (v *Verifier) Sign(req *ClickRequest, merchantPrepareID string) string {
	tenant, ok := v.byServiceID[req.ServiceID]
	if !ok {
		return ""
	}
	return digest(req.ClickTransID, req.ServiceID, tenant.SecretKey,
		req.MerchantTransID, merchantPrepareID, req.Amount, req.Action, req.SignTime)
}

func digest(clickTransID, serviceID, secret, merchantTransID, merchantPrepareID, amount string, action int, signTime string) string {
	payload := clickTransID + serviceID + secret + merchantTransID +
		merchantPrepareID + amount + strconv.Itoa(action) + signTime
	sum := md5.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}
