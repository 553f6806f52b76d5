package ordernum

import (
	"math/rand/v2"
	"strconv"

	"github.com/theplant/luhn"
)

// Номер заказа: 9 случайных цифр + контрольная цифра по алгоритму Луна

func Generate() string {
	base := rand.IntN(900000000) + 100000000
	check := luhn.CalculateLuhn(base)
	return strconv.Itoa(base*10 + check)
}

func Valid(number string) bool {
	n, err := strconv.Atoi(number)
	if err != nil {
		return false
	}
	return luhn.Valid(n)
}
