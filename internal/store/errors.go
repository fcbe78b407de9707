package store

import "errors"

var ErrNoIdentity = errors.New("no stored identity")
