package saga

// Topic names are the saga's fixed wiring. The routing table only ever
// resolves to one of these, so the set doubles as the validation universe
// for table rows.
const (
	TopicStartSaga             = "start-saga"
	TopicOrchestrator          = "orchestrator"
	TopicFinishSuccess         = "finish-success"
	TopicFinishFail            = "finish-fail"
	TopicProductValidationOK   = "product-validation-success"
	TopicProductValidationFail = "product-validation-fail"
	TopicPaymentOK             = "payment-success"
	TopicPaymentFail           = "payment-fail"
	TopicInventoryOK           = "inventory-success"
	TopicInventoryFail         = "inventory-fail"
	TopicNotifyEnding          = "notify-ending"
)

// Topics lists every topic a saga message can travel on.
func Topics() []string {
	return []string{
		TopicStartSaga,
		TopicOrchestrator,
		TopicFinishSuccess,
		TopicFinishFail,
		TopicProductValidationOK,
		TopicProductValidationFail,
		TopicPaymentOK,
		TopicPaymentFail,
		TopicInventoryOK,
		TopicInventoryFail,
		TopicNotifyEnding,
	}
}
