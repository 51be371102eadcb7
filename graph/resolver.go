package graph

import "time"

type AuthConfig struct {
	Secret         string
	TTL            time.Duration
	SharedPassword string
}

type Resolver struct {
	DS   *DataSource
	Bus  *EventBus
	Auth AuthConfig
}
