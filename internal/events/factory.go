package events

import "fmt"

// FactoryConfig конфигурация фабрики публикаторов
type FactoryConfig struct {
	Publisher     string // "nats", "kafka", "inmemory"
	NATSURL       string
	KafkaBrokers  []string
	SubjectPrefix string
}

// NewPublisher создает публикатор по типу из конфигурации
func NewPublisher(config FactoryConfig) (Publisher, error) {
	switch config.Publisher {
	case "nats":
		natsCfg := DefaultNATSConfig()
		if config.NATSURL != "" {
			natsCfg.URL = config.NATSURL
		}
		if config.SubjectPrefix != "" {
			natsCfg.SubjectPrefix = config.SubjectPrefix
		}
		return NewNATSPublisher(natsCfg)
	case "kafka":
		kafkaCfg := DefaultKafkaConfig()
		if len(config.KafkaBrokers) > 0 {
			kafkaCfg.Brokers = config.KafkaBrokers
		}
		if config.SubjectPrefix != "" {
			kafkaCfg.Topic = config.SubjectPrefix + ".orders"
		}
		return NewKafkaPublisher(kafkaCfg)
	case "inmemory":
		return NewInMemoryPublisher(), nil
	default:
		return nil, fmt.Errorf("unknown events publisher: %s", config.Publisher)
	}
}
