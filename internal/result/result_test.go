package result

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResultKinds(t *testing.T) {
	tests := []struct {
		name   string
		res    Result
		wantOK bool
		kind   Kind
	}{
		{name: "success", res: Success("готово"), wantOK: true, kind: KindOK},
		{name: "validation", res: Validation("пароль короче %d символов", 6), kind: KindValidation},
		{name: "not found", res: NotFound("рейс %d не найден", 7), kind: KindNotFound},
		{name: "conflict", res: Conflict("рейс уже начат"), kind: KindConflict},
		{name: "referenced", res: Referenced("есть %d рейсов", 3), kind: KindReferenced},
		{name: "internal", res: Internal(""), kind: KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantOK, tt.res.OK())
			assert.Equal(t, tt.kind, tt.res.Kind)
			assert.NotEmpty(t, tt.res.Message)
		})
	}
}

func TestOf(t *testing.T) {
	ok := Value(int64(42), "")
	assert.True(t, ok.OK())
	assert.Equal(t, int64(42), ok.Value)

	failed := Fail[int64](NotFound("нет"))
	assert.False(t, failed.OK())
	assert.Zero(t, failed.Value)
	assert.Equal(t, "not_found: нет", failed.String())
}
