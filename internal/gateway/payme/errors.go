package payme

// Message carries the three languages Payme expects in error bodies.
type Message struct {
	Uz string `json:"uz"`
	Ru string `json:"ru"`
	En string `json:"en"`
}

// RPCError is the error object of a Payme reply. State and Reason ride
// along when an operation is refused because the transaction moved to a
// canceled state.
type RPCError struct {
	Code    int     `json:"code"`
	Message Message `json:"message"`
	State   *int    `json:"state,omitempty"`
	Reason  *int    `json:"reason,omitempty"`
}

// WithState returns a copy annotated with state and reason.
func (e RPCError) WithState(state, reason int) *RPCError {
	e.State = &state
	e.Reason = &reason
	return &e
}

func (e RPCError) ref() *RPCError {
	return &e
}

var (
	ErrInvalidAmount = RPCError{
		Code: -31001,
		Message: Message{
			Uz: "Noto'g'ri summa",
			Ru: "Недопустимая сумма",
			En: "Invalid amount",
		},
	}

	ErrTransactionNotFound = RPCError{
		Code: -31003,
		Message: Message{
			Uz: "Tranzaktsiya topilmadi",
			Ru: "Транзакция не найдена",
			En: "Transaction not found",
		},
	}

	ErrCantDoOperation = RPCError{
		Code: -31008,
		Message: Message{
			Uz: "Biz operatsiyani bajara olmaymiz",
			Ru: "Мы не можем сделать операцию",
			En: "We can't do operation",
		},
	}

	ErrAlreadyDone = RPCError{
		Code: -31060,
		Message: Message{
			Uz: "Bu uchun to'lov qilib bo'lingan yoki status aktiv emas.",
			Ru: "Оплата за это не проведена или статус неактивен.",
			En: "Already paid for this or status is not active",
		},
	}

	ErrAccountMissing = RPCError{
		Code: -31060,
		Message: Message{
			Uz: "Hisob ma'lumotlari topilmadi",
			Ru: "Отсутствует информация по аккаунту",
			En: "Account information missing",
		},
	}

	ErrActiveTransactionExists = RPCError{
		Code: -31099,
		Message: Message{
			Uz: "Ushbu qatnashuv uchun faol tranzaksiya allaqachon mavjud",
			Ru: "Для данного посещения уже существует активная транзакция",
			En: "An active transaction already exists for this attendance",
		},
	}

	ErrInvalidAuthorization = RPCError{
		Code: -32504,
		Message: Message{
			Uz: "Avtorizatsiya yaroqsiz",
			Ru: "Авторизация недействительна",
			En: "Authorization invalid",
		},
	}

	ErrMethodNotFound = RPCError{
		Code: -32601,
		Message: Message{
			Uz: "Metod topilmadi",
			Ru: "Метод не найден",
			En: "Method not found",
		},
	}

	ErrInternal = RPCError{
		Code: -32400,
		Message: Message{
			Uz: "Tizim xatosi",
			Ru: "Системная ошибка",
			En: "System error",
		},
	}
)
