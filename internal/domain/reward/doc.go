// Package reward содержит правила геймификации: подсчёт очков за урок,
// реестр достижений и вычисление уровня пользователя.
//
// Пакет не зависит от хранилища и транспорта: все функции либо чистые,
// либо мутируют переданный им набор достижений.
package reward
