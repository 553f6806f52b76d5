package issuerclient

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/iurnickita/vouchermart/internal/model"
)

// Клиент эмитента ваучеров. Денежные значения в JSON эмитента — в основных
// единицах валюты, внутри сервиса — в минорных. Исключение — Plafond:
// эмитент отдает баланс сразу в минорных единицах

// JSON ответ аутентификации: токен и доступный баланс (Plafond, минорные единицы)
type AuthAnswer struct {
	OperationSucceeded bool    `json:"OperationSucceeded"`
	Token              string  `json:"Token"`
	Plafond            float64 `json:"Plafond"`
}

// JSON ответ ценового диапазона варианта продукта
type OptionDetailAnswer struct {
	OperationSucceeded     bool `json:"OperationSucceeded"`
	AvailableProductOption struct {
		MinMaxFaceRangeValue struct {
			MinFaceValue float64 `json:"MinFaceValue"`
			MaxFaceValue float64 `json:"MaxFaceValue"`
		} `json:"MinMaxFaceRangeValue"`
		MinMaxRangeValue struct {
			MinValue          float64 `json:"MinValue"`
			MaxValue          float64 `json:"MaxValue"`
			MinWholesaleValue float64 `json:"MinWholesaleValue"`
			MaxWholesaleValue float64 `json:"MaxWholesaleValue"`
		} `json:"MinMaxRangeValue"`
	} `json:"AvailableProductOption"`
}

// JSON запрос выпуска одного ваучера
type TransactionRequest struct {
	Token             string  `json:"Token"`
	ExternalID        string  `json:"ExternalId"`
	ProductTypeCode   string  `json:"ProductTypeCode"`
	ProductOptionCode string  `json:"ProductOptionCode"`
	Amount            float64 `json:"Amount"`
	Quantity          int     `json:"Quantity"`
}

// JSON ответ выпуска
type TransactionAnswer struct {
	OperationSucceeded bool               `json:"OperationSucceeded"`
	Error              int                `json:"Error"`
	ErrorText          string             `json:"ErrorText"`
	PaymentResultData  *PaymentResultData `json:"PaymentResultData"`
}
type PaymentResultData struct {
	ResponseAmount        float64 `json:"ResponseAmount"`
	AmountWholesale       float64 `json:"AmountWholesale"`
	Quantity              int     `json:"Quantity"`
	SerialNumber          string  `json:"SerialNumber"`
	TransactionID         string  `json:"TransactionId"`
	ProviderTransactionID string  `json:"ProviderTransactionId"`
	Reference             string  `json:"Reference"`
	RedeemURL             string  `json:"RedeemUrl"`
}

const ProductTypeCodeVoucher = "Voucher"

type IssuerClient interface {
	Authenticate(ctx context.Context, acct model.StoreAccount) (AuthAnswer, error)
	GetOptionDetail(ctx context.Context, acct model.StoreAccount, issuerToken string, optionCode string) (OptionDetailAnswer, error)
	DoTransaction(ctx context.Context, acct model.StoreAccount, request TransactionRequest) (TransactionAnswer, string, error)
}

type issuerClient struct {
	serviceAddr string
	sandboxAddr string
	rest        *resty.Client
}

func NewIssuerClient(serviceAddr string, sandboxAddr string, timeout time.Duration) IssuerClient {
	return issuerClient{
		serviceAddr: serviceAddr,
		sandboxAddr: sandboxAddr,
		rest:        resty.New().SetTimeout(timeout),
	}
}

func (client issuerClient) baseAddr(acct model.StoreAccount) string {
	if acct.Data.Sandbox {
		return client.sandboxAddr
	}
	return client.serviceAddr
}

type authRequest struct {
	Email        string `json:"Email"`
	Password     string `json:"Password"`
	SecurityCode string `json:"SecurityCode"`
}

func (client issuerClient) Authenticate(ctx context.Context, acct model.StoreAccount) (AuthAnswer, error) {
	path := "/api/auth"

	setreq := client.rest.R().SetContext(ctx)
	setreq.Method = http.MethodPost
	setreq.URL = client.baseAddr(acct) + path
	setreq.SetBody(authRequest{
		Email:        acct.Data.IssuerEmail,
		Password:     acct.Data.IssuerPassword,
		SecurityCode: acct.Data.IssuerSecurityCode,
	})
	setresp, err := setreq.Send()
	if err != nil {
		return AuthAnswer{}, err
	}

	switch setresp.StatusCode() {
	case http.StatusOK:
		var authAnswer AuthAnswer
		err = json.Unmarshal(setresp.Body(), &authAnswer)
		if err != nil {
			return AuthAnswer{}, err
		}
		if !authAnswer.OperationSucceeded {
			return AuthAnswer{}, fmt.Errorf("issuer auth rejected for store %s", acct.Code)
		}
		return authAnswer, nil
	default:
		return AuthAnswer{}, fmt.Errorf("issuer auth status: %d", setresp.StatusCode())
	}
}

type optionDetailRequest struct {
	Token             string `json:"Token"`
	ProductOptionCode string `json:"ProductOptionCode"`
}

func (client issuerClient) GetOptionDetail(ctx context.Context, acct model.StoreAccount, issuerToken string, optionCode string) (OptionDetailAnswer, error) {
	path := "/api/products/option/detail"

	setreq := client.rest.R().SetContext(ctx)
	setreq.Method = http.MethodPost
	setreq.URL = client.baseAddr(acct) + path
	setreq.SetBody(optionDetailRequest{
		Token:             issuerToken,
		ProductOptionCode: optionCode,
	})
	setresp, err := setreq.Send()
	if err != nil {
		return OptionDetailAnswer{}, err
	}

	switch setresp.StatusCode() {
	case http.StatusOK:
		var detailAnswer OptionDetailAnswer
		err = json.Unmarshal(setresp.Body(), &detailAnswer)
		if err != nil {
			return OptionDetailAnswer{}, err
		}
		if !detailAnswer.OperationSucceeded {
			return OptionDetailAnswer{}, fmt.Errorf("issuer option detail rejected: %s", optionCode)
		}
		return detailAnswer, nil
	default:
		return OptionDetailAnswer{}, fmt.Errorf("issuer option detail status: %d", setresp.StatusCode())
	}
}

// DoTransaction выпускает ровно один ваучер. Возвращает также сырое тело
// ответа для журнала единицы выпуска
func (client issuerClient) DoTransaction(ctx context.Context, acct model.StoreAccount, request TransactionRequest) (TransactionAnswer, string, error) {
	path := "/api/transaction"

	setreq := client.rest.R().SetContext(ctx)
	setreq.Method = http.MethodPost
	setreq.URL = client.baseAddr(acct) + path
	setreq.SetBody(request)
	setresp, err := setreq.Send()
	if err != nil {
		return TransactionAnswer{}, "", err
	}

	switch setresp.StatusCode() {
	case http.StatusOK:
		var transactionAnswer TransactionAnswer
		err = json.Unmarshal(setresp.Body(), &transactionAnswer)
		if err != nil {
			return TransactionAnswer{}, string(setresp.Body()), err
		}
		return transactionAnswer, string(setresp.Body()), nil
	default:
		return TransactionAnswer{}, string(setresp.Body()),
			fmt.Errorf("issuer transaction status: %d", setresp.StatusCode())
	}
}

// Перевод между минорными единицами сервиса и денежными значениями эмитента

func AmountOut(minor int64) float64 {
	return float64(minor) / 100
}

func AmountIn(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
