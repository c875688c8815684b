package model

type ChannelPreference struct {
	SMS      bool `json:"sms"`
	WhatsApp bool `json:"whatsapp"`
	Email    bool `json:"email"`
}

// NotificationSettings maps a notification category to the channels it may use.
type NotificationSettings struct {
	Preferences map[string]ChannelPreference `json:"notification_preferences"`
}

func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{Preferences: map[string]ChannelPreference{
		"BookingChanges":   {SMS: true, Email: true},
		"BookingReminders": {SMS: true, Email: true},
		"SuavUpdates":      {Email: true},
		"SecuritySettings": {SMS: true, Email: true},
	}}
}
