package codec

import (
	"strconv"
	"strings"

	"github.com/yanun0323/errors"

	"main/pkg/exception"
)

// Client order ids correlate asynchronous exchange responses with local
// orders. Wire format: "<brokerId>-<orderId>", e.g. "JVEE-300".

// ValidateBrokerID rejects broker ids that cannot survive the delimiter
// based split.
func ValidateBrokerID(brokerID string) error {
	if brokerID == "" || strings.Contains(brokerID, "-") {
		return errors.Wrap(exception.ErrInvalidBrokerID, "validate").With("brokerID", brokerID)
	}
	return nil
}

// EncodeClientOrderID renders "<brokerId>-<orderId>".
func EncodeClientOrderID(brokerID string, orderID int64) string {
	return brokerID + "-" + strconv.FormatInt(orderID, 10)
}

// DecodeClientOrderID splits on the first '-' and parses the remainder as
// the numeric order id. The split is delimiter based, not a fixed offset,
// so broker ids of any length decode correctly.
func DecodeClientOrderID(clientOrderID string) (string, int64, error) {
	brokerID, rest, ok := strings.Cut(clientOrderID, "-")
	if !ok || brokerID == "" || rest == "" {
		return "", 0, errors.Wrap(exception.ErrInvalidClientOrderID, "decode").With("clientOrderID", clientOrderID)
	}
	orderID, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || orderID <= 0 {
		return "", 0, errors.Wrap(exception.ErrInvalidClientOrderID, "parse order id").With("clientOrderID", clientOrderID)
	}
	return brokerID, orderID, nil
}
