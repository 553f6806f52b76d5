package auth

import (
	"net/http"
	"strings"

	"github.com/iurnickita/vouchermart/internal/store"
	"github.com/iurnickita/vouchermart/internal/token"
)

// Определение действующего магазина для API-запросов.
// Выдача и обновление токенов — забота внешнего контура

type Auth interface {
	Middleware(h http.HandlerFunc) http.HandlerFunc
}

const (
	HeaderStoreCodeKey = "storeCode"
	cookieStoreToken   = "vouchermartStoreToken"
)

type auth struct {
	store  store.Store
	secret string
}

func NewAuth(store store.Store, secret string) Auth {
	return &auth{
		store:  store,
		secret: secret,
	}
}

func (a *auth) Middleware(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// получение кода магазина
		storeCode, err := a.getStoreCode(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		// магазин должен быть известен
		if _, err := a.store.StoreAccountGet(r.Context(), storeCode); err != nil {
			http.Error(w, "unknown store", http.StatusUnauthorized)
			return
		}

		// записываем
		r.Header.Set(HeaderStoreCodeKey, storeCode)

		// передаём управление хендлеру
		h.ServeHTTP(w, r)
	}
}

func (a *auth) getStoreCode(r *http.Request) (string, error) {
	// куки магазина
	if tokenCookie, err := r.Cookie(cookieStoreToken); err == nil {
		return token.GetStoreCode(tokenCookie.Value, a.secret)
	}

	// либо заголовок Authorization
	bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	return token.GetStoreCode(bearer, a.secret)
}
