// Package model はドメインモデルを定義する。
package model

import "time"

// Coordinates は施設の地理座標を表す。
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Photo は施設に添付された写真を表す。
// 作成後は不変であり、削除はアップロードした本人のみ可能。
type Photo struct {
	URL        string    `json:"url"`
	UploadedBy string    `json:"uploadedBy"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Location はスポーツ施設を表す。
// 作成者（CreatedBy）のみが書き込み権限を持ち、読み取りは誰でも可能。
// Photosは位置指定でアクセスする順序付きシーケンスであり、集合ではない。
type Location struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Description    string      `json:"description"`
	Address        string      `json:"address"`
	NumberOfCourts int         `json:"numberOfCourts"`
	SurfaceType    string      `json:"surfaceType"`
	IsIndoor       bool        `json:"isIndoor"`
	Coordinates    Coordinates `json:"coordinates"`
	Photos         []Photo     `json:"photos"`
	CreatedBy      string      `json:"createdBy"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
}

// NewLocation は施設作成時の入力を表す。
// CreatedBy・CreatedAt・UpdatedAtは書き込み時にストアが付与する。
type NewLocation struct {
	Name           string      `json:"name"`
	Description    string      `json:"description"`
	Address        string      `json:"address"`
	NumberOfCourts int         `json:"numberOfCourts"`
	SurfaceType    string      `json:"surfaceType"`
	IsIndoor       bool        `json:"isIndoor"`
	Coordinates    Coordinates `json:"coordinates"`
}

// LocationPatch は施設の部分更新を表す。
// nilのフィールドは変更されない。
type LocationPatch struct {
	Name           *string      `json:"name,omitempty"`
	Description    *string      `json:"description,omitempty"`
	Address        *string      `json:"address,omitempty"`
	NumberOfCourts *int         `json:"numberOfCourts,omitempty"`
	SurfaceType    *string      `json:"surfaceType,omitempty"`
	IsIndoor       *bool        `json:"isIndoor,omitempty"`
	Coordinates    *Coordinates `json:"coordinates,omitempty"`
}
