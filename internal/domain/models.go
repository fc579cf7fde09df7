package domain

import (
	"time"
)

// HandlerAI is the fixed handler tag on every tracking row written by the
// automated pipeline.
const HandlerAI = "AI"

// ProcessTracking records how far one platform message has progressed
// through the seven-step handling pipeline. Rows are never deleted; a row is
// finished when IsFinished is 1.
//
// Fields:
//   - MessageID: platform message id (unique; creation is create-if-absent).
//   - MessageType: kind code "1".."7".
//   - FetchInfo..PlatformCallSuccess: step markers, written forward only.
//   - LastStep: highest step written so far, used to refuse skip-backs.
//   - Handler: always "AI".
type ProcessTracking struct {
	ID                 uint64    `json:"id"                   gorm:"primaryKey;autoIncrement"`
	MessageID          string    `json:"message_id"           gorm:"column:sainiu_msg_id;type:varchar(100);not null;uniqueIndex:ux_tracking_msg"`
	MessageType        string    `json:"message_type"         gorm:"type:varchar(50)"`
	FetchInfo          string    `json:"fetch_info"           gorm:"column:sainiu_fetch_info;type:varchar(50)"`
	PreprocessInfo     string    `json:"preprocess_info"      gorm:"column:preprocess_info;type:varchar(50)"`
	EngineCall         string    `json:"engine_call"          gorm:"column:dify_api_call;type:varchar(50)"`
	EngineCallComplete string    `json:"engine_call_complete" gorm:"column:dify_call_completed;type:varchar(50)"`
	PlatformCall       string    `json:"platform_call"        gorm:"column:sainiu_api_call;type:varchar(50)"`
	PlatformCallOK     string    `json:"platform_call_success" gorm:"column:sainiu_call_success;type:varchar(50)"`
	LastStep           int       `json:"last_step"            gorm:"not null;default:0"`
	Handler            string    `json:"handler"              gorm:"type:varchar(100);not null;default:'AI'"`
	IsFinished         int       `json:"is_finished"          gorm:"not null;default:0;index"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TableName returns the database table name for ProcessTracking.
func (ProcessTracking) TableName() string { return "process_tracking" }

// AIMessageRecord is the audit row for one automated reply or transfer.
type AIMessageRecord struct {
	ID               uint64    `json:"id"                  gorm:"primaryKey;autoIncrement"`
	Date             time.Time `json:"date"`
	UserNickname     string    `json:"user_nickname"       gorm:"type:varchar(100)"`
	BuyerUID         string    `json:"buyer_uid"           gorm:"type:varchar(100);index"`
	Message          string    `json:"message"             gorm:"type:text"`
	ForwardedToAgent bool      `json:"forwarded_to_agent"  gorm:"not null;default:false"`
	ForwardReason    string    `json:"forward_reason"      gorm:"type:text"`
	ProductType      string    `json:"product_type"        gorm:"type:varchar(100)"`
	PlatformMsgID    string    `json:"sainiu_id"           gorm:"column:sainiu_id;type:varchar(100);index"`
	EngineID         string    `json:"dify_id"             gorm:"column:dify_id;type:varchar(100)"`
	EngineInput      string    `json:"send_dify_data_info" gorm:"column:send_dify_data_info;type:text"`
	DataType         string    `json:"data_type"           gorm:"type:varchar(100)"`
	TraceID          string    `json:"trace_id"            gorm:"type:varchar(64)"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName returns the database table name for AIMessageRecord.
func (AIMessageRecord) TableName() string { return "ai_message_records" }

// Product is the stock view of one model number.
type Product struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement"`
	Model        string    `gorm:"type:varchar(500);not null;index"`
	Category     string    `gorm:"type:varchar(500)"`
	Brand        string    `gorm:"type:varchar(500)"`
	MerchantCode string    `gorm:"type:varchar(500);index"`
	Quantity     int64     `gorm:"not null;default:0"`
	UpdatedAt    time.Time `gorm:"index"`
}

// TableName returns the database table name for Product.
func (Product) TableName() string { return "productinfo" }

// ProductLink is a storefront listing for a model in a given condition.
type ProductLink struct {
	ID            uint64 `gorm:"primaryKey;autoIncrement"`
	Model         string `gorm:"type:varchar(100);not null;index"`
	ProductType   string `gorm:"type:varchar(100)"`
	ProductStatus string `gorm:"type:varchar(50)"`
	URL           string `gorm:"type:varchar(255)"`
	ItemID        string `gorm:"type:varchar(100);index"`
	ShopName      string `gorm:"type:varchar(255)"`
	CreatedAt     time.Time
}

// TableName returns the database table name for ProductLink.
func (ProductLink) TableName() string { return "product_links" }
