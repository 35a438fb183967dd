package models

import "time"

// NewsletterPreferences 订阅偏好，新订阅默认全部开启
type NewsletterPreferences struct {
	FuelPrices      bool `bson:"fuelPrices" json:"fuelPrices"`
	Promotions      bool `bson:"promotions" json:"promotions"`
	IndustryNews    bool `bson:"industryNews" json:"industryNews"`
	DeliveryUpdates bool `bson:"deliveryUpdates" json:"deliveryUpdates"`
}

// DefaultNewsletterPreferences 默认偏好
func DefaultNewsletterPreferences() NewsletterPreferences {
	return NewsletterPreferences{
		FuelPrices:      true,
		Promotions:      true,
		IndustryNews:    true,
		DeliveryUpdates: true,
	}
}

// NewsletterSubscriber 邮件订阅者
type NewsletterSubscriber struct {
	ID             string                `bson:"-" json:"id"`
	Email          string                `bson:"email" json:"email"`
	FirstName      string                `bson:"firstName,omitempty" json:"firstName,omitempty"`
	LastName       string                `bson:"lastName,omitempty" json:"lastName,omitempty"`
	Source         string                `bson:"source" json:"source"`
	Preferences    NewsletterPreferences `bson:"preferences" json:"preferences"`
	Active         bool                  `bson:"active" json:"active"`
	UnsubscribedAt *time.Time            `bson:"unsubscribedAt,omitempty" json:"unsubscribedAt,omitempty"`
	CreatedAt      time.Time             `bson:"createdAt,omitempty" json:"createdAt"`
	UpdatedAt      time.Time             `bson:"updatedAt,omitempty" json:"updatedAt"`
}

// SubscribeRequest 订阅请求
type SubscribeRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Source    string `json:"source"`
}

// UnsubscribeRequest 退订请求
type UnsubscribeRequest struct {
	Email string `json:"email"`
}
