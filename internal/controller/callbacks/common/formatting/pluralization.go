package formatting

func pluralize(count int, one, few, many string) string {
	if count%10 == 1 && count%100 != 11 {
		return one
	}
	if count%10 >= 2 && count%10 <= 4 && (count%100 < 10 || count%100 >= 20) {
		return few
	}
	return many
}

// PluralizeAssignments возвращает правильное склонение слова "назначение"
func PluralizeAssignments(count int) string {
	return pluralize(count, "назначение", "назначения", "назначений")
}

// PluralizeCancellations возвращает правильное склонение слова "отмена"
func PluralizeCancellations(count int) string {
	return pluralize(count, "отмена", "отмены", "отмен")
}
