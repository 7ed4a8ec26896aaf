package asaas

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dmitrymomot/biolink/pkg/gateway"
)

type customerRequest struct {
	Name              string `json:"name"`
	Email             string `json:"email,omitempty"`
	CpfCnpj           string `json:"cpfCnpj"`
	MobilePhone       string `json:"mobilePhone,omitempty"`
	ExternalReference string `json:"externalReference,omitempty"`
	// Asaas emails its own receipts unless told not to.
	NotificationDisabled bool `json:"notificationDisabled"`
}

type customerResponse struct {
	ID string `json:"id"`
}

// CreateCustomer creates an Asaas customer with the user id as external
// reference.
func (c *Client) CreateCustomer(ctx context.Context, cust gateway.Customer) (string, error) {
	if cust.Name == "" || cust.TaxID == "" {
		return "", fmt.Errorf("%w: customer name and tax id are required", gateway.ErrInvalidRequest)
	}

	var out customerResponse
	err := c.do(ctx, "create_customer", http.MethodPost, "/customers", customerRequest{
		Name:                 cust.Name,
		Email:                cust.Email,
		CpfCnpj:              cust.TaxID,
		MobilePhone:          cust.Phone,
		ExternalReference:    cust.UserID.String(),
		NotificationDisabled: true,
	}, &out)
	if err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", &gateway.ProcessorError{
			Provider:  ProviderName,
			Operation: "create_customer",
			Message:   "payment processor returned no customer id",
		}
	}
	return out.ID, nil
}
