package logfields

import "go.uber.org/zap"

func Repository(val string) zap.Field {
	return zap.String("git.repository", val)
}

func Pusher(val string) zap.Field {
	return zap.String("git.pusher", val)
}

func CommitCount(val int) zap.Field {
	return zap.Int("git.commit_count", val)
}
