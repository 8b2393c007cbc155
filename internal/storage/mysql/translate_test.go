package mysql

import (
	"errors"
	"testing"

	drv "github.com/go-sql-driver/mysql"

	"hbnb/internal/domain"
)

func TestTranslate(t *testing.T) {
	cases := []struct {
		num  uint16
		want error
	}{
		{errNoReference, domain.ErrNotFound},
		{errDupEntry, domain.ErrAlreadyLinked},
		{errDataTooLong, domain.ErrInvalidInput},
	}
	for _, tc := range cases {
		err := translate(&drv.MySQLError{Number: tc.num, Message: "x"})
		if !errors.Is(err, tc.want) {
			t.Fatalf("%d: got %v, want %v", tc.num, err, tc.want)
		}
	}
	other := errors.New("boom")
	if got := translate(other); got != other {
		t.Fatalf("unrelated errors must pass through, got %v", got)
	}
}
