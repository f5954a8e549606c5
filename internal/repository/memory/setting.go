package memory

import (
	"context"
	"sort"

	"github.com/cecproctor/proctor-backend/internal/model"
)

type settingRepository struct {
	db *DB
}

func (r *settingRepository) GetAll(_ context.Context) ([]model.AppSetting, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	res := make([]model.AppSetting, 0, len(r.db.settings))
	for _, s := range r.db.settings {
		res = append(res, s)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Key < res[j].Key })
	return res, nil
}

func (r *settingRepository) ReplaceAll(_ context.Context, values map[string]string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	at := now()
	for k, v := range values {
		r.db.settings[k] = model.AppSetting{Key: k, Value: v, UpdatedAt: at}
	}
	return nil
}
