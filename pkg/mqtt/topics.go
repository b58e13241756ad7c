package mqtt

import "fmt"

// Topic layout, one topic per message kind, scoped by channel. Fog share
// topics carry the fog index so each regional aggregator only receives the
// shares addressed to it.

func RoundStartTopic(channelID string) string {
	return fmt.Sprintf("dpsshare/%s/rounds/start", channelID)
}

func ShareSubmitTopic(channelID string) string {
	return fmt.Sprintf("dpsshare/%s/shares/submit", channelID)
}

func RoundFlushTopic(channelID string) string {
	return fmt.Sprintf("dpsshare/%s/rounds/flush", channelID)
}

func ApprovedShareTopic(channelID string, fogIndex int) string {
	return fmt.Sprintf("dpsshare/%s/shares/approved/%d", channelID, fogIndex)
}

func PartialTopic(channelID string) string {
	return fmt.Sprintf("dpsshare/%s/partials", channelID)
}

func GlobalModelTopic(channelID string) string {
	return fmt.Sprintf("dpsshare/%s/models/global", channelID)
}
