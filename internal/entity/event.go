package entity

import "context"

type Publisher interface {
	JetstreamEventInit(ctx context.Context) error
}

type FillEvent struct {
	RetryCount int  `json:"retry"`
	Data       Fill `json:"data"`
}
