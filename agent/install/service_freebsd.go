package install

import (
	"github.com/kardianos/service"
)

const (
	// freebsd service names must not contain "-"
	ServiceName        = "statsgraf"
	serviceDescription = "Statsd delivery bridge"

	sysvScript = `#!/bin/sh
#
# PROVIDE: {{.Name}}
# REQUIRE: networking syslog
# KEYWORD:
# Add the following lines to /etc/rc.conf to enable the {{.Name}}:
#
# {{.Name}}_enable="YES"
#
. /etc/rc.subr
name="{{.Name}}"
rcvar="{{.Name}}_enable"
command="{{.Path}}"
pidfile="/var/run/$name.pid"
start_cmd="/opt/statsgraf/statsgraf --configs /opt/statsgraf/conf"
load_rc_config $name
run_rc_command "$1"
`
)

var (
	serviceConfig = &service.Config{
		Name:        ServiceName,
		DisplayName: ServiceName,
		Description: serviceDescription,
		Option: service.KeyValue{
			"SysvScript": sysvScript,
		},
	}
)

func ServiceConfig(userMode bool) *service.Config {
	return serviceConfig
}
