package handlers

import "github.com/linesight/linesight/server/ops"

type Deps interface {
	State() *ops.State
}
