package kafka

import "time"

const (
	TopicCreateRequest = "coupon.create.req"
	TopicDeleteRequest = "coupon.delete.req"
	TopicListRequest   = "coupon.list.req"
	TopicCreateRetry   = "coupon.create.retry"
	TopicDeleteRetry   = "coupon.delete.retry"
	TopicListRetry     = "coupon.list.retry"
	TopicReplyPrefix   = "coupon.reply."
	TopicRequestSuffix = ".req"
	TopicRetrySuffix   = ".retry"
	TopicDLQSuffix     = ".dlq"

	RequestTimeout = 3 * time.Second

	// Requests failing with an internal error are re-queued through the
	// retry topic up to MaxAttempts times before going to the DLQ.
	MaxAttempts  = 3
	RetryBackoff = 500 * time.Millisecond

	RetryHeaderNextAt  = "x-next-at"
	RetryHeaderAttempt = "x-attempt"
	ErrorHeaderKey     = "x-error"
)

func RequestTopics() []string {
	return []string{TopicCreateRequest, TopicDeleteRequest, TopicListRequest}
}

func RetryTopics() []string {
	return []string{TopicCreateRetry, TopicDeleteRetry, TopicListRetry}
}

func ReplyTopic(instanceID string) string {
	return TopicReplyPrefix + instanceID
}
