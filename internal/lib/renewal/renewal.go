// Package renewal содержит чистую арифметику дат продления VIP-подписки.
// Вынесена отдельно, чтобы репозиторий считал новую дату кика внутри
// одной транзакции, а тесты проверяли граничные случаи без базы.
package renewal

import "time"

// NextKickDate возвращает дату кика после продления на days дней.
// Отсчет идет от более поздней из двух дат: текущей даты кика или now.
// Продление заранее не сжигает оставшиеся дни, продление после истечения
// не дарит отрицательное время. При kickDate == now базой служит kickDate.
func NextKickDate(kickDate, now time.Time, days int) time.Time {
	base := kickDate
	if now.After(kickDate) {
		base = now
	}
	return base.AddDate(0, 0, days)
}

// FirstKickDate возвращает дату кика для первой покупки подписки.
func FirstKickDate(now time.Time, days int) time.Time {
	return now.AddDate(0, 0, days)
}
