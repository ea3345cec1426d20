package uuidfreeze

import (
	smithyrand "github.com/aws/smithy-go/rand"
)

// IdempotencyTokenProvider returns an AWS SDK idempotency token provider fed
// from Reader. Its calls originate in github.com/aws/smithy-go, which every
// scope ignores by default, so tokens stay unique unless a scope opts in with
// IgnoreDefaults(false).
//
//	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
//		o.IdempotencyTokenProvider = uuidfreeze.IdempotencyTokenProvider()
//	})
func IdempotencyTokenProvider() *smithyrand.UUIDIdempotencyToken {
	return smithyrand.NewUUIDIdempotencyToken(Reader)
}
