package orders

const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status.changed"
)

// Partition key = order_id, so all events of one order keep their order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }

func TopicFor(eventType string) string {
	if eventType == EventOrderStatusChanged {
		return TopicOrderStatusChanged
	}
	return TopicOrderCreated
}
