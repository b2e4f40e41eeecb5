package logfields

import "go.uber.org/zap"

func Relay(val string) zap.Field {
	return zap.String("relay", val)
}

func DeliveryID(val string) zap.Field {
	return zap.String("github.delivery_id", val)
}

func FieldName(val string) zap.Field {
	return zap.String("github.field_name", val)
}

func ContentNodeID(val string) zap.Field {
	return zap.String("github.content_node_id", val)
}

func Project(val int) zap.Field {
	return zap.Int("github.project", val)
}

func Repository(val string) zap.Field {
	return zap.String("github.repository", val)
}

func Organization(val string) zap.Field {
	return zap.String("github.organization", val)
}

func Sender(val string) zap.Field {
	return zap.String("github.sender", val)
}
