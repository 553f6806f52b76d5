package sallaclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/iurnickita/vouchermart/internal/model"
)

// Клиент витрины Salla: прикрепление кодов к цифровому товару

type AttachCodesRequest struct {
	Codes []string `json:"codes"`
}

type AttachCodesAnswer struct {
	Status  int  `json:"status"`
	Success bool `json:"success"`
	Data    struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"data"`
}

type SallaClient interface {
	AttachCodes(ctx context.Context, acct model.StoreAccount, sallaProductID string, codes []string) (AttachCodesAnswer, error)
}

type sallaClient struct {
	serviceAddr string
	rest        *resty.Client
}

func NewSallaClient(serviceAddr string, timeout time.Duration) SallaClient {
	return sallaClient{
		serviceAddr: serviceAddr,
		rest:        resty.New().SetTimeout(timeout),
	}
}

func (client sallaClient) AttachCodes(ctx context.Context, acct model.StoreAccount, sallaProductID string, codes []string) (AttachCodesAnswer, error) {
	path := "/admin/v2/products/" + sallaProductID + "/codes"

	setreq := client.rest.R().SetContext(ctx)
	setreq.Method = http.MethodPost
	setreq.URL = client.serviceAddr + path
	setreq.SetAuthToken(acct.Data.SallaToken)
	setreq.SetBody(AttachCodesRequest{Codes: codes})
	setresp, err := setreq.Send()
	if err != nil {
		return AttachCodesAnswer{}, err
	}

	switch setresp.StatusCode() {
	case http.StatusOK, http.StatusCreated:
		var attachAnswer AttachCodesAnswer
		err = json.Unmarshal(setresp.Body(), &attachAnswer)
		return attachAnswer, err
	default:
		return AttachCodesAnswer{}, fmt.Errorf("salla attach codes status: %d", setresp.StatusCode())
	}
}
