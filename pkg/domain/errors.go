package domain

import "errors"

var (
	// ErrValidation is returned when a request is malformed or internally
	// inconsistent. No side effects have occurred.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientFunds is returned when a wallet debit would drive the
	// balance negative. The balance is unchanged.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrIntegrity is returned when a gateway payload fails signature
	// verification. The payload must not be trusted and the operation aborts.
	ErrIntegrity = errors.New("signature verification failed")

	// ErrGateway is returned for network failures, timeouts, or malformed
	// responses from the payment gateway. It is distinct from a logical
	// decline: a pending transaction stays pending.
	ErrGateway = errors.New("payment gateway unavailable")

	// ErrAlreadyPurchased is returned when a buyer attempts to purchase an
	// item they already own.
	ErrAlreadyPurchased = errors.New("item already purchased")

	// ErrTransactionNotFound is returned when no transaction matches the
	// given id or order id.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrWalletNotFound is returned when no balance row exists for the
	// requested user and currency.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrSubscriptionNotFound is returned when a subscription cannot be found.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrPlanNotFound is returned when a plan or price tier cannot be found.
	ErrPlanNotFound = errors.New("plan not found")

	// ErrItemNotFound is returned when a purchasable item cannot be found.
	ErrItemNotFound = errors.New("item not found")

	// ErrPaymentTokenNotFound is returned when no stored recurring token
	// matches the request.
	ErrPaymentTokenNotFound = errors.New("payment token not found")

	// ErrSellerUnavailable is returned when the seller of an item cannot be
	// resolved or is not in good standing. Purchases fail closed.
	ErrSellerUnavailable = errors.New("seller unavailable")

	// ErrAmountMustBePositive is returned when a monetary amount is zero or
	// negative.
	ErrAmountMustBePositive = errors.New("amount must be positive")

	// ErrInvalidTransition is returned when a transaction status change
	// violates the lifecycle: pending is the only non-terminal state.
	ErrInvalidTransition = errors.New("invalid status transition")
)
