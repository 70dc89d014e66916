// Package transports imports every built-in broker so it registers with the
// default registry.
package transports

import (
	_ "github.com/drblury/catalogsync/transport/channel"
	_ "github.com/drblury/catalogsync/transport/kafka"
	_ "github.com/drblury/catalogsync/transport/nats"
	_ "github.com/drblury/catalogsync/transport/rabbitmq"
)
