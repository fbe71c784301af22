package types

// CommunicationStyle summarizes how a child tends to talk with Appu
type CommunicationStyle string

const (
	CommunicationStyleNew          CommunicationStyle = "new"
	CommunicationStyleCurious      CommunicationStyle = "curious"
	CommunicationStyleExpressive   CommunicationStyle = "expressive"
	CommunicationStyleEnthusiastic CommunicationStyle = "enthusiastic"
	CommunicationStyleReserved     CommunicationStyle = "reserved"
	CommunicationStyleBalanced     CommunicationStyle = "balanced"
)

func (s CommunicationStyle) String() string {
	return string(s)
}

// InsightPattern names a pattern found by consolidation
type InsightPattern string

const (
	InsightRecurringInterest  InsightPattern = "recurring_interest"
	InsightEmotionalPattern   InsightPattern = "emotional_pattern"
	InsightLearningEngagement InsightPattern = "learning_engagement"
)

func (p InsightPattern) String() string {
	return string(p)
}
