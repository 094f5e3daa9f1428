package service

import (
	checkoutdomain "github.com/smallbiznis/talentgate/internal/checkout/domain"
	paymentdomain "github.com/smallbiznis/talentgate/internal/payment/domain"
)

// buildMetadata attaches the reconciliation keys. Caller extras never
// override them.
func buildMetadata(req checkoutdomain.Request, userID, attemptID string) map[string]string {
	out := make(map[string]string, len(req.Metadata)+6)
	for k, v := range req.Metadata {
		out[k] = v
	}
	out[paymentdomain.MetadataPurpose] = purposeOf(req)
	out[paymentdomain.MetadataUserID] = userID
	out[paymentdomain.MetadataUserType] = req.UserType
	out[paymentdomain.MetadataCategory] = req.Category
	out[paymentdomain.MetadataAttemptID] = attemptID
	if req.Email != "" {
		out[paymentdomain.MetadataEmail] = req.Email
	} else {
		delete(out, paymentdomain.MetadataEmail)
	}
	return out
}

func purposeOf(req checkoutdomain.Request) string {
	switch {
	case req.IsVerification():
		return paymentdomain.PurposeVerification
	case req.Mode == string(paymentdomain.ModeSubscription):
		return paymentdomain.PurposeSubscription
	default:
		return req.Category
	}
}
