package dal

import (
	"log"

	"github.com/segmentio/kafka-go"

	"dc-purchase-api/internal/config"
)

var KafkaWriter *kafka.Writer

func InitKafka() {
	c := config.C.Kafka
	if !c.Enabled || len(c.Brokers) == 0 {
		return
	}
	KafkaWriter = &kafka.Writer{
		Addr:     kafka.TCP(c.Brokers...),
		Topic:    c.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Printf("[Kafka] writer ready → brokers=%v topic=%s", c.Brokers, c.Topic)
}
