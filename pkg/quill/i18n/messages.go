package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys used outside templates
const (
	MsgAlreadyLiked     = "You have already liked this article"
	MsgNotLiked         = "You have not liked this article"
	MsgRequired         = "This field is required."
	MsgMaxLength        = "Ensure this field has no more than %d characters."
	MsgMinLength        = "Ensure this field has at least %d characters."
	MsgInvalidEmail     = "Enter a valid email address."
	MsgAlphanumeric     = "Enter a value containing only letters and digits."
	MsgInvalidValue     = "Enter a valid value."
	MsgTitleMismatch    = "The title does not match the article title."
	MsgInvalidLogin     = "Invalid email or password."
	MsgEmailTaken       = "A user with that email already exists."
	MsgUsernameTaken    = "A user with that username already exists."
	MsgNotFound         = "Not found."
	MsgPermissionDenied = "You do not have permission to perform this action."
	MsgServerError      = "Something went wrong. Please try again later."
)

var russian = map[string]string{
	MsgAlreadyLiked:     "Лайк уже поставлен",
	MsgNotLiked:         "Лайк не был поставлен",
	MsgRequired:         "Обязательное поле.",
	MsgMaxLength:        "Убедитесь, что это значение содержит не более %d символов.",
	MsgMinLength:        "Убедитесь, что это значение содержит не менее %d символов.",
	MsgInvalidEmail:     "Введите правильный адрес электронной почты.",
	MsgAlphanumeric:     "Значение может содержать только буквы и цифры.",
	MsgInvalidValue:     "Введите правильное значение.",
	MsgTitleMismatch:    "Название не совпадает с названием статьи.",
	MsgInvalidLogin:     "Неверный адрес электронной почты или пароль.",
	MsgEmailTaken:       "Пользователь с таким адресом уже существует.",
	MsgUsernameTaken:    "Пользователь с таким именем уже существует.",
	MsgNotFound:         "Не найдено.",
	MsgPermissionDenied: "У вас нет прав для выполнения этого действия.",
	MsgServerError:      "Что-то пошло не так. Попробуйте позже.",

	// Page text
	"Articles":                            "Статьи",
	"Add article":                         "Добавить статью",
	"Edit article":                        "Редактировать статью",
	"Delete article":                      "Удалить статью",
	"Search":                              "Поиск",
	"Title":                               "Название",
	"Content":                             "Содержание",
	"Tags":                                "Теги",
	"Tags, separated by commas":           "Теги через запятую",
	"Author":                              "Автор",
	"Created":                             "Создано",
	"Updated":                             "Обновлено",
	"Edit":                                "Редактировать",
	"Delete":                              "Удалить",
	"Save":                                "Сохранить",
	"Cancel":                              "Отмена",
	"Like":                                "Нравится",
	"Unlike":                              "Не нравится",
	"Likes":                               "Лайки",
	"Comments":                            "Комментарии",
	"Add comment":                         "Добавить комментарий",
	"No comments yet.":                    "Комментариев пока нет.",
	"No articles found.":                  "Статьи не найдены.",
	"Previous":                            "Назад",
	"Next":                                "Вперёд",
	"First":                               "Первая",
	"Last":                                "Последняя",
	"Page %d of %d":                       "Страница %d из %d",
	"Log in":                              "Войти",
	"Log out":                             "Выйти",
	"Register":                            "Регистрация",
	"Email":                               "Электронная почта",
	"Username":                            "Имя пользователя",
	"Name":                                "Имя",
	"Password":                            "Пароль",
	"Are you sure you want to delete %q?": "Вы уверены, что хотите удалить «%s»?",
	"Type the article title to confirm":   "Введите название статьи для подтверждения",
	"Page not found":                      "Страница не найдена",
	"Access denied":                       "Доступ запрещён",
}

func init() {
	for key, msg := range russian {
		if err := message.SetString(language.Russian, key, msg); err != nil {
			panic(err)
		}
	}
}
