package enums

type NotificationType string

const (
	NotificationTypeNewFollower     NotificationType = "NEW_FOLLOWER"
	NotificationTypeStreamStart     NotificationType = "STREAM_START"
	NotificationTypeEnableTwoFactor NotificationType = "ENABLE_TWO_FACTOR"
	NotificationTypeAccountDeletion NotificationType = "ACCOUNT_DELETION"
)
