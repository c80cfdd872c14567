package uci

import "errors"

var (
	ErrProcessStart = errors.New("engine process start failed")
	ErrTimeout      = errors.New("engine response timeout")
	ErrClosed       = errors.New("engine output closed")
	ErrIO           = errors.New("engine write failed")
)
