package statetransition

import "errors"

var ErrUnknownCommand = errors.New("unknown command")
