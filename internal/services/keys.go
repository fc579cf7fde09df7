package services

// Key layout in the ephemeral store.
const (
	watchedSet         = "active_user"
	burstPayloadPrefix = "one@"
	handoffKeyPrefix   = "ai_zj_"
	sessionKeyPrefix   = "expiring_array:"
)

func activityMarkerKey(user string) string { return "active_user:&&" + user + "&&last_active" }

func burstPayloadKey(user string) string { return burstPayloadPrefix + user }

func handoffKey(buyerUID string) string { return handoffKeyPrefix + buyerUID }

func sessionKey(buyerUID, nick string) string { return sessionKeyPrefix + buyerUID + "_" + nick }
