// Package progress содержит агрегат записи прогресса по уроку.
//
// Запись (Record) существует ровно одна на пару (пользователь, урок) и
// хранит время просмотра, сессии просмотра, завершение и награды.
// Все переходы состояния - методы агрегата, принимающие текущее время;
// сохраняется агрегат целиком.
//
// Машина состояний:
//
//	not_started ──StartSession/RecordProgress──▶ in_progress ──≥80%──▶ completed
//
// Завершение необратимо, но завершённая запись остаётся доступной для
// оценки, закладки, заметок и вовлечённости.
package progress
