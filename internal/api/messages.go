package telegram

import (
	"fmt"

	"maize-bot/internal/domain/entity"
)

type msgKey string

const (
	msgStart             msgKey = "start"
	msgHelp              msgKey = "help"
	msgChooseSource      msgKey = "choose_source"
	msgBtnCamera         msgKey = "btn_camera"
	msgBtnGallery        msgKey = "btn_gallery"
	msgWarning           msgKey = "warning"
	msgBtnContinue       msgKey = "btn_continue"
	msgBtnCancel         msgKey = "btn_cancel"
	msgPermission        msgKey = "permission"
	msgBtnAllow          msgKey = "btn_allow"
	msgBtnDeny           msgKey = "btn_deny"
	msgSendPhotoNow      msgKey = "send_photo_now"
	msgSendAsPhoto       msgKey = "send_as_photo"
	msgNotWaiting        msgKey = "not_waiting"
	msgPhotoReceived     msgKey = "photo_received"
	msgBtnDetect         msgKey = "btn_detect"
	msgAnalyzing         msgKey = "analyzing"
	msgBusy              msgKey = "busy"
	msgResultDisease     msgKey = "result_disease"
	msgResultHealthy     msgKey = "result_healthy"
	msgRecommendations   msgKey = "recommendations"
	msgApplication       msgKey = "application"
	msgGuestHint         msgKey = "guest_hint"
	msgBtnSave           msgKey = "btn_save"
	msgBtnAnother        msgKey = "btn_another"
	msgSaved             msgKey = "saved"
	msgCancelled         msgKey = "cancelled"
	msgInvalidAction     msgKey = "invalid_action"
	msgPermissionDenied  msgKey = "permission_denied"
	msgAcquisitionFailed msgKey = "acquisition_failed"
	msgDetectionFailed   msgKey = "detection_failed"
	msgSaveFailed        msgKey = "save_failed"
	msgSignInToSave      msgKey = "sign_in_to_save"
	msgSignInRequired    msgKey = "sign_in_required"
	msgHistoryEmpty      msgKey = "history_empty"
	msgHistoryHeader     msgKey = "history_header"
	msgHistoryItem       msgKey = "history_item"
	msgDeleted           msgKey = "deleted"
	msgRecordNotFound    msgKey = "record_not_found"
	msgUsageDelete       msgKey = "usage_delete"
	msgUsageSignup       msgKey = "usage_signup"
	msgUsageConfirm      msgKey = "usage_confirm"
	msgUsageLogin        msgKey = "usage_login"
	msgUsageReset        msgKey = "usage_reset"
	msgUsageNewPassword  msgKey = "usage_new_password"
	msgUsageLang         msgKey = "usage_lang"
	msgUsageProfile      msgKey = "usage_profile"
	msgUsagePassword     msgKey = "usage_password"
	msgSignedUp          msgKey = "signed_up"
	msgConfirmed         msgKey = "confirmed"
	msgLoggedIn          msgKey = "logged_in"
	msgLoggedOut         msgKey = "logged_out"
	msgResetSent         msgKey = "reset_sent"
	msgPasswordUpdated   msgKey = "password_updated"
	msgPasswordChanged   msgKey = "password_changed"
	msgPhoneNotSet       msgKey = "phone_not_set"
	msgProfile           msgKey = "profile"
	msgProfileUpdated    msgKey = "profile_updated"
	msgLangChanged       msgKey = "lang_changed"
	msgAuthFailed        msgKey = "auth_failed"
	msgUnknownCommand    msgKey = "unknown_command"
	msgInternalError     msgKey = "internal_error"
	msgSeverityMild      msgKey = "severity_mild"
	msgSeverityModerate  msgKey = "severity_moderate"
	msgSeveritySevere    msgKey = "severity_severe"
	msgKindCamera        msgKey = "kind_camera"
	msgKindGallery       msgKey = "kind_gallery"
)

var catalog = map[entity.Locale]map[msgKey]string{
	entity.LocaleEnglish: {
		msgStart: `👋 Hi! I detect diseases on maize leaves.

📸 Take or upload a photo of a leaf and I will suggest a diagnosis and treatment.

📋 Commands:
/detect — analyze a leaf
/history — saved detections
/login — sign in to save results
/help — help`,
		msgHelp: `ℹ️ How it works:

1️⃣ Press /detect and choose camera or gallery
2️⃣ Confirm access and send a photo of one leaf
3️⃣ Press "Analyze" and get the diagnosis

👤 Account:
/signup <email> <password> <name>
/confirm <token>
/login <email> <password>
/logout
/reset <email>
/newpassword <token> <password>
/password <new password>
/profile
/profile name <full name>
/profile phone <number> (- to clear)

🗂 History:
/history
/delete <id>

🌐 /lang en|ru`,
		msgChooseSource:      "📸 Where should the leaf photo come from?",
		msgBtnCamera:         "📷 Camera",
		msgBtnGallery:        "🖼 Gallery",
		msgWarning:           "⚠️ The photo of your leaf will be sent for analysis. The result is a suggestion, not an agronomist's verdict. Continue?",
		msgBtnContinue:       "Continue",
		msgBtnCancel:         "Cancel",
		msgPermission:        "🔐 Allow the bot to use the %s photo you send next?",
		msgBtnAllow:          "Allow",
		msgBtnDeny:           "Deny",
		msgSendPhotoNow:      "📸 Send the photo now. /cancel to stop.",
		msgSendAsPhoto:       "📷 Camera mode expects a photo, not a file. Send it as a photo.",
		msgNotWaiting:        "📸 Press /detect first to start an analysis.",
		msgPhotoReceived:     "✅ Photo received (%dx%d). Ready to analyze.",
		msgBtnDetect:         "🔬 Analyze",
		msgAnalyzing:         "⏳ Analyzing the leaf...",
		msgBusy:              "⏳ The analysis is already running.",
		msgResultDisease:     "🌽 %s\nConfidence: %d%%\nSeverity: %s\n\n%s",
		msgResultHealthy:     "✅ The leaf looks healthy.\nConfidence: %d%%\n\n%s",
		msgRecommendations:   "💊 Recommendations:",
		msgApplication:       "Application",
		msgGuestHint:         "👤 You are in guest mode. /login to save results to your history.",
		msgBtnSave:           "💾 Save",
		msgBtnAnother:        "🔁 Analyze another",
		msgSaved:             "💾 Saved to history.",
		msgCancelled:         "❌ Cancelled. Press /detect to start again.",
		msgInvalidAction:     "🤔 This action is not available right now.",
		msgPermissionDenied:  "🚫 Access denied. Press /detect when you change your mind.",
		msgAcquisitionFailed: "⚠️ Could not read the photo: %s",
		msgDetectionFailed:   "⚠️ Analysis failed: %s. Press \"Analyze\" to retry.",
		msgSaveFailed:        "⚠️ Could not save: %s. Try again.",
		msgSignInToSave:      "🔐 Sign in with /login to save detections.",
		msgSignInRequired:    "🔐 Sign in with /login first.",
		msgHistoryEmpty:      "🗂 Your history is empty.",
		msgHistoryHeader:     "🗂 Saved detections:",
		msgHistoryItem:       "%s · %s · %d%% · %s\nID: %s",
		msgDeleted:           "🗑 Record deleted.",
		msgRecordNotFound:    "🤷 Record not found.",
		msgUsageDelete:       "Usage: /delete <id>",
		msgUsageSignup:       "Usage: /signup <email> <password> <name>",
		msgUsageConfirm:      "Usage: /confirm <token>",
		msgUsageLogin:        "Usage: /login <email> <password>",
		msgUsageReset:        "Usage: /reset <email>",
		msgUsageNewPassword:  "Usage: /newpassword <token> <password>",
		msgUsageLang:         "Usage: /lang en|ru",
		msgUsageProfile:      "Usage: /profile, /profile name <full name> or /profile phone <number|->",
		msgUsagePassword:     "Usage: /password <new password>",
		msgSignedUp:          "📧 Account created. Check %s for the confirmation link.",
		msgConfirmed:         "✅ Email confirmed. You can /login now.",
		msgLoggedIn:          "👋 Welcome, %s!",
		msgLoggedOut:         "👋 Signed out.",
		msgResetSent:         "📧 If the address is registered, a reset link is on its way.",
		msgPasswordUpdated:   "🔑 Password updated.",
		msgPasswordChanged:   "🔑 Password changed. Sign in again with /login.",
		msgPhoneNotSet:       "not set",
		msgProfile:           "👤 %s\n📧 %s\n📞 %s",
		msgProfileUpdated:    "✅ Profile updated.",
		msgLangChanged:       "🌐 Language: English",
		msgAuthFailed:        "⚠️ %s",
		msgUnknownCommand:    "❓ Unknown command. Use /help.",
		msgInternalError:     "⚠️ Something went wrong. Please try again.",
		msgSeverityMild:      "Mild",
		msgSeverityModerate:  "Moderate",
		msgSeveritySevere:    "Severe",
		msgKindCamera:        "camera",
		msgKindGallery:       "gallery",
	},
	entity.LocaleRussian: {
		msgStart: `👋 Привет! Я нахожу болезни на листьях кукурузы.

📸 Сделайте или загрузите фото листа, и я подскажу диагноз и обработку.

📋 Команды:
/detect — проанализировать лист
/history — сохранённые анализы
/login — войти, чтобы сохранять результаты
/help — справка`,
		msgHelp: `ℹ️ Как пользоваться:

1️⃣ Нажмите /detect и выберите камеру или галерею
2️⃣ Подтвердите доступ и отправьте фото одного листа
3️⃣ Нажмите «Анализ» и получите диагноз

👤 Аккаунт:
/signup <почта> <пароль> <имя>
/confirm <токен>
/login <почта> <пароль>
/logout
/reset <почта>
/newpassword <токен> <пароль>
/password <новый пароль>
/profile
/profile name <полное имя>
/profile phone <номер> (- чтобы удалить)

🗂 История:
/history
/delete <id>

🌐 /lang en|ru`,
		msgChooseSource:      "📸 Откуда взять фото листа?",
		msgBtnCamera:         "📷 Камера",
		msgBtnGallery:        "🖼 Галерея",
		msgWarning:           "⚠️ Фото листа будет отправлено на анализ. Результат носит рекомендательный характер. Продолжить?",
		msgBtnContinue:       "Продолжить",
		msgBtnCancel:         "Отмена",
		msgPermission:        "🔐 Разрешить боту использовать фото (%s), которое вы отправите?",
		msgBtnAllow:          "Разрешить",
		msgBtnDeny:           "Запретить",
		msgSendPhotoNow:      "📸 Отправьте фото. /cancel для отмены.",
		msgSendAsPhoto:       "📷 В режиме камеры нужно фото, а не файл. Отправьте как фото.",
		msgNotWaiting:        "📸 Сначала нажмите /detect.",
		msgPhotoReceived:     "✅ Фото получено (%dx%d). Можно анализировать.",
		msgBtnDetect:         "🔬 Анализ",
		msgAnalyzing:         "⏳ Анализирую лист...",
		msgBusy:              "⏳ Анализ уже идёт.",
		msgResultDisease:     "🌽 %s\nУверенность: %d%%\nСтепень: %s\n\n%s",
		msgResultHealthy:     "✅ Лист выглядит здоровым.\nУверенность: %d%%\n\n%s",
		msgRecommendations:   "💊 Рекомендации:",
		msgApplication:       "Применение",
		msgGuestHint:         "👤 Гостевой режим. Войдите через /login, чтобы сохранять результаты.",
		msgBtnSave:           "💾 Сохранить",
		msgBtnAnother:        "🔁 Ещё лист",
		msgSaved:             "💾 Сохранено в историю.",
		msgCancelled:         "❌ Отменено. Нажмите /detect, чтобы начать заново.",
		msgInvalidAction:     "🤔 Сейчас это действие недоступно.",
		msgPermissionDenied:  "🚫 Доступ запрещён. Нажмите /detect, если передумаете.",
		msgAcquisitionFailed: "⚠️ Не удалось прочитать фото: %s",
		msgDetectionFailed:   "⚠️ Анализ не удался: %s. Нажмите «Анализ», чтобы повторить.",
		msgSaveFailed:        "⚠️ Не удалось сохранить: %s. Попробуйте ещё раз.",
		msgSignInToSave:      "🔐 Войдите через /login, чтобы сохранять анализы.",
		msgSignInRequired:    "🔐 Сначала войдите через /login.",
		msgHistoryEmpty:      "🗂 История пуста.",
		msgHistoryHeader:     "🗂 Сохранённые анализы:",
		msgHistoryItem:       "%s · %s · %d%% · %s\nID: %s",
		msgDeleted:           "🗑 Запись удалена.",
		msgRecordNotFound:    "🤷 Запись не найдена.",
		msgUsageDelete:       "Формат: /delete <id>",
		msgUsageSignup:       "Формат: /signup <почта> <пароль> <имя>",
		msgUsageConfirm:      "Формат: /confirm <токен>",
		msgUsageLogin:        "Формат: /login <почта> <пароль>",
		msgUsageReset:        "Формат: /reset <почта>",
		msgUsageNewPassword:  "Формат: /newpassword <токен> <пароль>",
		msgUsageLang:         "Формат: /lang en|ru",
		msgUsageProfile:      "Формат: /profile, /profile name <полное имя> или /profile phone <номер|->",
		msgUsagePassword:     "Формат: /password <новый пароль>",
		msgSignedUp:          "📧 Аккаунт создан. Ссылка для подтверждения отправлена на %s.",
		msgConfirmed:         "✅ Почта подтверждена. Теперь можно /login.",
		msgLoggedIn:          "👋 Добро пожаловать, %s!",
		msgLoggedOut:         "👋 Вы вышли из аккаунта.",
		msgResetSent:         "📧 Если адрес зарегистрирован, ссылка для сброса уже в пути.",
		msgPasswordUpdated:   "🔑 Пароль обновлён.",
		msgPasswordChanged:   "🔑 Пароль изменён. Войдите снова через /login.",
		msgPhoneNotSet:       "не указан",
		msgProfile:           "👤 %s\n📧 %s\n📞 %s",
		msgProfileUpdated:    "✅ Профиль обновлён.",
		msgLangChanged:       "🌐 Язык: русский",
		msgAuthFailed:        "⚠️ %s",
		msgUnknownCommand:    "❓ Неизвестная команда. Используйте /help.",
		msgInternalError:     "⚠️ Что-то пошло не так. Попробуйте ещё раз.",
		msgSeverityMild:      "Лёгкая",
		msgSeverityModerate:  "Умеренная",
		msgSeveritySevere:    "Тяжёлая",
		msgKindCamera:        "камера",
		msgKindGallery:       "галерея",
	},
}

// text возвращает сообщение на языке пользователя; неизвестный язык даёт английский.
func text(locale entity.Locale, key msgKey, args ...any) string {
	messages, ok := catalog[locale]
	if !ok {
		messages = catalog[entity.LocaleEnglish]
	}
	format, ok := messages[key]
	if !ok {
		format = catalog[entity.LocaleEnglish][key]
	}
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

func severityText(locale entity.Locale, s entity.Severity) string {
	switch s {
	case entity.SeverityMild:
		return text(locale, msgSeverityMild)
	case entity.SeverityModerate:
		return text(locale, msgSeverityModerate)
	case entity.SeveritySevere:
		return text(locale, msgSeveritySevere)
	default:
		return s.String()
	}
}

func kindText(locale entity.Locale, k entity.AcquisitionKind) string {
	if k == entity.AcquireGallery {
		return text(locale, msgKindGallery)
	}
	return text(locale, msgKindCamera)
}
