package exception

import "errors"

var ErrNilInstance = errors.New("nil instance")
