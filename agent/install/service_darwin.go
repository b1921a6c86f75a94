package install

import (
	"github.com/kardianos/service"
)

const (
	ServiceName        = "statsgraf"
	serviceDescription = "Statsd delivery bridge"
)

var (
	serviceConfig = &service.Config{
		Name:        ServiceName,
		DisplayName: ServiceName,
		Description: serviceDescription,
	}
)

func ServiceConfig(userMode bool) *service.Config {
	return serviceConfig
}
