package slotkey

import (
	"testing"
	"time"

	"github.com/Freeeeeet/assignment_board/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_AllShapes(t *testing.T) {
	tests := []struct {
		in   string
		want Key
		kind Kind
	}{
		{"status-5", StatusKey{StatusID: 5}, KindStatus},
		{"with_12_status-5", StatusKey{StatusID: 5, WithEmployeeID: model.ID(12)}, KindWith},
		{"client-3", ClientKey{ClientID: 3}, KindClient},
		{"client-3_type-7", ClientKey{ClientID: 3, TypeID: model.ID(7)}, KindClient},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Parse(tt.in)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.kind, got.Kind())
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestParse_RoundTrip(t *testing.T) {
	inputs := []string{"status-1", "with_2_status-9", "client-40", "client-40_type-2", "status-007"}

	for _, in := range inputs {
		decoded := Parse(in)
		require.NotNil(t, decoded, in)
		assert.Equal(t, decoded, Parse(decoded.String()), in)
	}
}

func TestParse_MalformedIsNil(t *testing.T) {
	malformed := []string{
		"",
		"status-",
		"status-abc",
		"status--5",
		"status-0",
		"client-3_type-",
		"client-3_type-x",
		"client-3_type-7_type-8",
		"client_3",
		"with_status-5",
		"with_2_status-",
		"with_x_status-5",
		"type-7",
		"garbage",
	}

	for _, in := range malformed {
		assert.Nil(t, Parse(in), "input %q", in)
	}
}

func TestBaseKey(t *testing.T) {
	assert.Equal(t, "client-3", BaseKey("client-3_type-7"))
	assert.Equal(t, "client-3", BaseKey("client-3"))
	assert.Equal(t, "status-5", BaseKey("status-5"))
	assert.Equal(t, "with_1_status-5", BaseKey("with_1_status-5"))
}

func TestKeyOfAndApply(t *testing.T) {
	keys := []Key{
		StatusKey{StatusID: 5},
		StatusKey{StatusID: 5, WithEmployeeID: model.ID(8)},
		ClientKey{ClientID: 3},
		ClientKey{ClientID: 3, TypeID: model.ID(2)},
	}

	for _, k := range keys {
		slot := &model.Slot{ClientID: model.ID(99), StatusID: model.ID(98)}
		Apply(k, slot)
		assert.Equal(t, k, KeyOf(slot), k.String())
	}

	assert.Nil(t, KeyOf(&model.Slot{}))
}

func TestPredicate_Matches(t *testing.T) {
	day := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	status := &model.Slot{EmployeeID: 1, Date: day, StatusID: model.ID(5)}
	paired := &model.Slot{EmployeeID: 1, Date: day, StatusID: model.ID(5), WithEmployeeID: model.ID(2)}
	untyped := &model.Slot{EmployeeID: 1, Date: day, ClientID: model.ID(3)}
	typed := &model.Slot{EmployeeID: 1, Date: day, ClientID: model.ID(3), ScheduleTypeID: model.ID(7)}

	statusPred := StatusKey{StatusID: 5}.Predicate()
	assert.True(t, statusPred.Matches(status))
	assert.False(t, statusPred.Matches(paired), "status predicate must not match a paired row")

	withPred := StatusKey{StatusID: 5, WithEmployeeID: model.ID(2)}.Predicate()
	assert.True(t, withPred.Matches(paired))
	assert.False(t, withPred.Matches(status))

	untypedPred := ClientKey{ClientID: 3}.Predicate()
	assert.True(t, untypedPred.Matches(untyped))
	assert.False(t, untypedPred.Matches(typed))

	typedPred := ClientKey{ClientID: 3, TypeID: model.ID(7)}.Predicate()
	assert.True(t, typedPred.Matches(typed))
	assert.False(t, typedPred.Matches(untyped))

	base := ClientKey{ClientID: 3, TypeID: model.ID(7)}.BasePredicate()
	assert.True(t, base.Matches(untyped))
	assert.True(t, base.Matches(typed))
	assert.False(t, base.Matches(status))

	filter := typedPred.On(1, day)
	assert.True(t, filter.Matches(typed))
	assert.False(t, typedPred.On(2, day).Matches(typed))
	assert.False(t, typedPred.On(1, day.AddDate(0, 0, 1)).Matches(typed))
}
