package mirror

import (
	"errors"
	"fmt"
)

// ErrNoLocations 表示调用方没有提供任何候选地址。
var ErrNoLocations = errors.New("mirror: no locations")

// HostError 表示某个镜像失败；其余镜像仍可能可用。
type HostError struct {
	Host string
	URI  string
	Err  error
}

func (e *HostError) Error() string {
	return fmt.Sprintf("mirror %s failed: %v", e.Host, e.Err)
}

func (e *HostError) Unwrap() error { return e.Err }

// ConnectivityError 表示本机完全没有网络，继续尝试其它镜像没有意义。
type ConnectivityError struct {
	URI string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("no network connectivity (%s): %v", e.URI, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }
